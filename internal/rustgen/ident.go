package rustgen

import "golang.org/x/text/unicode/norm"

// rustKeywords lists every word that cannot appear as a bare identifier
// in Rust 2021, in-use and reserved keywords alike.
var rustKeywords = map[string]bool{
	"as": true, "async": true, "await": true, "break": true,
	"const": true, "continue": true, "crate": true, "dyn": true,
	"else": true, "enum": true, "extern": true, "false": true,
	"fn": true, "for": true, "if": true, "impl": true,
	"in": true, "let": true, "loop": true, "match": true,
	"mod": true, "move": true, "mut": true, "pub": true,
	"ref": true, "return": true, "self": true, "Self": true,
	"static": true, "struct": true, "super": true, "trait": true,
	"true": true, "type": true, "unsafe": true, "use": true,
	"where": true, "while": true,
	// Reserved for future use.
	"abstract": true, "become": true, "box": true, "do": true,
	"final": true, "macro": true, "override": true, "priv": true,
	"try": true, "typeof": true, "unsized": true, "virtual": true,
	"yield": true,
}

// rawForbidden are keywords raw-identifier syntax cannot escape. They
// get a trailing underscore instead of an r# prefix.
var rawForbidden = map[string]bool{
	"self": true, "Self": true, "super": true, "crate": true,
}

// sanitizeIdent turns a Python identifier into a valid Rust one. Names
// are NFC-normalized first so that visually identical spellings of the
// same identifier collapse to one binding, then keyword collisions are
// escaped. The mapping is pure, so every occurrence of a name rewrites
// the same way.
func sanitizeIdent(name string) string {
	name = norm.NFC.String(name)
	if rawForbidden[name] {
		return name + "_"
	}
	if rustKeywords[name] {
		return "r#" + name
	}
	return name
}
