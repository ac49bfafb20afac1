// Package schema validates entity payloads against CUE schemas.
//
// A schema is itself an entity whose payload carries CUE source under a
// "source" field. Binding an entity to a schema means every subsequent
// save of that entity must unify with the schema and be fully concrete.
package schema
