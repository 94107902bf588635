package schema

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed catalog_def.cue
var catalogDefCUE string

//go:embed default_catalog.cue
var defaultCatalogCUE string

// LoadError reports a catalog file that failed CUE validation or decoding.
type LoadError struct {
	File    string
	Message string
}

func (e *LoadError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return e.Message
}

// Default returns the embedded catalog. The embedded source is validated
// at first use; a broken embed is a programming error, so Default panics
// rather than returning an error.
func Default() *Catalog {
	cat, err := loadSource("default_catalog.cue", defaultCatalogCUE)
	if err != nil {
		panic(fmt.Sprintf("embedded default catalog is invalid: %v", err))
	}
	return cat
}

// LoadDir loads a catalog from the CUE files in dir. All .cue files are
// unified into a single catalog value, validated against the embedded
// #Catalog definition, then decoded.
func LoadDir(dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &LoadError{File: dir, Message: fmt.Sprintf("catalog directory not accessible: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{File: dir, Message: "not a directory"}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &LoadError{File: dir, Message: fmt.Sprintf("scan failed: %v", err)}
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".cue") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, &LoadError{File: dir, Message: "no .cue files found"}
	}
	sort.Strings(files)

	var sb strings.Builder
	for _, f := range files {
		src, err := os.ReadFile(f)
		if err != nil {
			return nil, &LoadError{File: f, Message: fmt.Sprintf("read failed: %v", err)}
		}
		sb.Write(stripPackageClause(src))
		sb.WriteByte('\n')
	}
	return loadSource(dir, sb.String())
}

// LoadSource compiles catalog CUE source text directly. Used by tests and
// embedded catalogs.
func LoadSource(name, src string) (*Catalog, error) {
	return loadSource(name, src)
}

// catalogFile mirrors the #Catalog shape for cue.Value.Decode.
type catalogFile struct {
	Version string `json:"version"`
	Kinds   map[string]struct {
		Doc    string `json:"doc,omitempty"`
		Fields map[string]struct {
			Type   string   `json:"type"`
			Target string   `json:"target,omitempty"`
			Many   bool     `json:"many"`
			Values []string `json:"values,omitempty"`
			Doc    string   `json:"doc,omitempty"`
		} `json:"fields"`
	} `json:"kinds"`
}

func loadSource(name, src string) (*Catalog, error) {
	ctx := cuecontext.New()

	def := ctx.CompileString(catalogDefCUE)
	if err := def.Err(); err != nil {
		return nil, &LoadError{File: "catalog_def.cue", Message: cueerrors.Details(err, nil)}
	}

	val := ctx.CompileString(stripPackageClauseString(src))
	if err := val.Err(); err != nil {
		return nil, &LoadError{File: name, Message: cueerrors.Details(err, nil)}
	}

	// Unify the file with the #Catalog definition so every constraint in
	// catalog_def.cue applies to the authored file.
	checked := val.Unify(def.LookupPath(cue.ParsePath("#Catalog")))
	if err := checked.Validate(cue.Concrete(true)); err != nil {
		return nil, &LoadError{File: name, Message: cueerrors.Details(err, nil)}
	}

	var file catalogFile
	if err := checked.Decode(&file); err != nil {
		return nil, &LoadError{File: name, Message: fmt.Sprintf("decode: %v", err)}
	}
	return buildCatalog(name, file)
}

func buildCatalog(name string, file catalogFile) (*Catalog, error) {
	kinds := make([]*Kind, 0, len(file.Kinds))
	kindNames := make([]string, 0, len(file.Kinds))
	for kn := range file.Kinds {
		kindNames = append(kindNames, kn)
	}
	sort.Strings(kindNames)

	for _, kn := range kindNames {
		decl := file.Kinds[kn]
		fields := make([]Field, 0, len(decl.Fields))
		for fn, fd := range decl.Fields {
			ft, err := fieldType(fd.Type, fd.Target, fd.Many, fd.Values)
			if err != nil {
				return nil, &LoadError{File: name, Message: fmt.Sprintf("kind %q field %q: %v", kn, fn, err)}
			}
			fields = append(fields, Field{Name: fn, Type: ft, Doc: fd.Doc})
		}
		kinds = append(kinds, NewKind(kn, decl.Doc, fields...))
	}

	cat, err := NewCatalog(file.Version, kinds...)
	if err != nil {
		return nil, &LoadError{File: name, Message: err.Error()}
	}
	return cat, nil
}

func fieldType(typ, target string, many bool, values []string) (FieldType, error) {
	switch typ {
	case "string":
		return FieldType{Kind: TypeString}, nil
	case "number":
		return FieldType{Kind: TypeNumber}, nil
	case "bool":
		return FieldType{Kind: TypeBool}, nil
	case "enum":
		return FieldType{Kind: TypeEnum, Values: values}, nil
	case "vector":
		return FieldType{Kind: TypeVector}, nil
	case "color":
		return FieldType{Kind: TypeColor}, nil
	case "matrix":
		return FieldType{Kind: TypeMatrix}, nil
	case "relation":
		return FieldType{Kind: TypeRelation, Target: target, Many: many}, nil
	default:
		return FieldType{}, fmt.Errorf("unknown field type %q", typ)
	}
}

// stripPackageClause drops a leading "package ..." clause so multiple files
// (and the definition file) can be concatenated into one compile unit.
func stripPackageClause(src []byte) []byte {
	return []byte(stripPackageClauseString(string(src)))
}

func stripPackageClauseString(src string) string {
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}
		if strings.HasPrefix(trimmed, "package ") {
			lines[i] = ""
		}
		break
	}
	return strings.Join(lines, "\n")
}
