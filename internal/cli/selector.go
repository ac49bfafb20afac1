package cli

import "strings"

// splitSelector splits an entity selector into path and version ref.
//
//	article            -> ("article", "")
//	article@7          -> ("article", "7")
//	article#deadbeef.. -> ("article", "#deadbeef..")
func splitSelector(selector string) (path, ref string) {
	if i := strings.LastIndex(selector, "#"); i >= 0 {
		return selector[:i], "#" + selector[i+1:]
	}
	if i := strings.LastIndex(selector, "@"); i >= 0 {
		return selector[:i], selector[i+1:]
	}
	return selector, ""
}
