package util

import (
	"strings"
	"unicode"
)

const maxFileNameLen = 255

// DisplayFileName reduces a client-supplied file name to its base name
// without control characters. Empty results become "resume".
func DisplayFileName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "resume"
	}
	if len(name) > maxFileNameLen {
		runes := []rune(name)
		for len(string(runes)) > maxFileNameLen {
			runes = runes[:len(runes)-1]
		}
		name = string(runes)
	}
	return name
}
