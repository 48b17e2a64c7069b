package headers

// Param is one parameter of a function prototype.
type Param struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// Signature is a parsed function prototype.
type Signature struct {
	Return   string  `json:"return"`
	Params   []Param `json:"params,omitempty"`
	Variadic bool    `json:"variadic,omitempty"`
}

// TypeDecl is one parsed type declaration, carried verbatim so the host can
// define it in its own type system.
type TypeDecl struct {
	Kind   string `json:"kind"` // struct, union, enum, typedef
	Name   string `json:"name"`
	Source string `json:"source"`
}
