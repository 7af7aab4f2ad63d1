package value

import (
	"strconv"
	"strings"
)

// Walk resolves a JSON-pointer-style path ("/a/b", "/a[0]/b") against
// v and returns the value found at that path. Paths are rooted at v
// itself; an empty path returns v unchanged.
func Walk(v Value, path string) (Value, bool) {
	segments := splitPath(path)
	cur := v
	for _, seg := range segments {
		if seg.isIndex {
			if cur.Kind != KindArray || seg.index < 0 || seg.index >= len(cur.Array) {
				return Value{}, false
			}
			cur = cur.Array[seg.index]
			continue
		}
		if cur.Kind != KindObject {
			return Value{}, false
		}
		next, ok := cur.Object[seg.key]
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

type pathSegment struct {
	key     string
	index   int
	isIndex bool
}

// splitPath turns "/a/b[2]/c" into [{key:"a"} {key:"b"} {index:2,isIndex:true} {key:"c"}].
func splitPath(path string) []pathSegment {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil
	}
	var out []pathSegment
	for _, part := range strings.Split(path, "/") {
		for len(part) > 0 {
			if i := strings.IndexByte(part, '['); i >= 0 {
				if i > 0 {
					out = append(out, pathSegment{key: part[:i]})
				}
				j := strings.IndexByte(part[i:], ']')
				if j < 0 {
					break
				}
				idx, err := strconv.Atoi(part[i+1 : i+j])
				if err == nil {
					out = append(out, pathSegment{index: idx, isIndex: true})
				}
				part = part[i+j+1:]
				continue
			}
			out = append(out, pathSegment{key: part})
			break
		}
	}
	return out
}

// TermsForPaths derives secondary-index terms for v restricted to the
// declared paths: for each path that resolves against v to a string
// value, it contributes one "<path>=<string>" term. Paths that resolve
// to a non-string (or don't resolve at all) contribute nothing — the
// secondary index only ever answers string-equality filters.
func TermsForPaths(v Value, paths []string) []string {
	var out []string
	for _, p := range paths {
		resolved, ok := Walk(v, p)
		if !ok || resolved.Kind != KindString {
			continue
		}
		out = append(out, termPath(p)+"="+resolved.Str)
	}
	return out
}

// termPath normalizes a configured index path to its canonical,
// leading-"/" form so declaring a path with or without the slash
// produces the same stored term.
func termPath(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}
