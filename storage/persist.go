package storage

import (
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/kevinawalsh/datalogdb"
)

// encodedTerm mirrors datalog.AtomicTerm for the wire: Atoms encode with
// IsVar false, Variables with IsVar true.
type encodedTerm struct {
	Name  string `json:"name"`
	IsVar bool   `json:"is_var"`
}

type encodedCompound struct {
	Relation string        `json:"relation"`
	Params   []encodedTerm `json:"params"`
}

type encodedRule struct {
	Head encodedCompound   `json:"head"`
	Body []encodedCompound `json:"body"`
}

type encodedRelation struct {
	Kind  string            `json:"kind"` // "extension" | "intension"
	Name  string            `json:"name"`
	Arity int               `json:"arity"`
	Rows  [][]string        `json:"rows,omitempty"`
	Rules []encodedRule     `json:"rules,omitempty"`
}

func encodeAtomicTerm(t datalog.AtomicTerm) encodedTerm {
	switch v := t.(type) {
	case datalog.Variable:
		return encodedTerm{Name: string(v), IsVar: true}
	case datalog.Atom:
		return encodedTerm{Name: string(v), IsVar: false}
	default:
		return encodedTerm{Name: t.String(), IsVar: false}
	}
}

func decodeAtomicTerm(t encodedTerm) datalog.AtomicTerm {
	if t.IsVar {
		return datalog.Variable(t.Name)
	}
	return datalog.Atom(t.Name)
}

func encodeCompound(c datalog.CompoundTerm) encodedCompound {
	out := encodedCompound{Relation: c.Relation, Params: make([]encodedTerm, len(c.Params))}
	for i, p := range c.Params {
		out.Params[i] = encodeAtomicTerm(p)
	}
	return out
}

func decodeCompound(c encodedCompound) datalog.CompoundTerm {
	params := make([]datalog.AtomicTerm, len(c.Params))
	for i, p := range c.Params {
		params[i] = decodeAtomicTerm(p)
	}
	return datalog.CompoundTerm{Relation: c.Relation, Params: params}
}

func encodeRule(r datalog.Rule) encodedRule {
	out := encodedRule{Head: encodeCompound(r.Head), Body: make([]encodedCompound, len(r.Body))}
	for i, b := range r.Body {
		out.Body[i] = encodeCompound(b)
	}
	return out
}

func decodeRule(r encodedRule) datalog.Rule {
	body := make([]datalog.CompoundTerm, len(r.Body))
	for i, b := range r.Body {
		body[i] = decodeCompound(b)
	}
	return datalog.Rule{Head: decodeCompound(r.Head), Body: body}
}

func relationPath(dataDir, name string) string {
	return filepath.Join(dataDir, name+".json")
}

func loadRelation(dataDir, name string) (*Relation, error) {
	path := relationPath(dataDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, datalog.WrapStorage(err, "reading relation file "+path)
	}
	var enc encodedRelation
	if err := json.Unmarshal(data, &enc); err != nil {
		return nil, datalog.WrapStorage(err, "decoding relation file "+path)
	}
	switch enc.Kind {
	case "extension":
		t := &Table{Name: enc.Name, Arity: enc.Arity}
		for _, row := range enc.Rows {
			t.Rows = append(t.Rows, datalog.Tuple(row))
		}
		return &Relation{Table: t}, nil
	case "intension":
		v := &View{Name: enc.Name, Arity: enc.Arity}
		for _, r := range enc.Rules {
			v.Rules = append(v.Rules, decodeRule(r))
		}
		return &Relation{View: v}, nil
	default:
		return nil, &datalog.StorageError{Inner: &datalog.MalformedLineError{Reason: "unknown relation kind " + enc.Kind}}
	}
}

// writeRelation atomically persists one relation: encode to a temp file in
// the same directory, then rename over the final path, so a crash mid
// write never leaves a corrupt file in place.
func writeRelation(dataDir string, rel *Relation) error {
	var enc encodedRelation
	enc.Name = rel.Name()
	enc.Arity = rel.Arity()
	if rel.IsExtensional() {
		enc.Kind = "extension"
		for _, row := range rel.Table.Rows {
			enc.Rows = append(enc.Rows, []string(row))
		}
	} else {
		enc.Kind = "intension"
		for _, r := range rel.View.Rules {
			enc.Rules = append(enc.Rules, encodeRule(r))
		}
	}
	data, err := json.Marshal(&enc)
	if err != nil {
		return datalog.WrapStorage(err, "encoding relation "+rel.Name())
	}
	final := relationPath(dataDir, rel.Name())
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return datalog.WrapStorage(err, "writing relation file "+tmp)
	}
	if err := os.Rename(tmp, final); err != nil {
		return datalog.WrapStorage(err, "renaming relation file "+tmp)
	}
	return nil
}

// WriteBack flushes every dirty relation to disk and clears their dirty
// flags. Caller must hold at least RLock (the background writer calls
// this while holding only a non-blocking read attempt, matching the
// original driver's try_read/write_back contract); a foreground Close
// calls it while holding the exclusive lock.
func (e *Engine) WriteBack() error {
	for name := range e.dirty {
		rel, ok := e.catalog.relations[name]
		if !ok {
			delete(e.dirty, name)
			continue
		}
		if err := writeRelation(e.dataDir, rel); err != nil {
			return err
		}
		delete(e.dirty, name)
	}
	return nil
}
