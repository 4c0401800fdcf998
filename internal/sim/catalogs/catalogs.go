package catalogs

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed arcs.schema.json
var arcsSchema string

type Catalogs struct {
	Arcs ArcCatalog
}

// ArcCatalog is the immutable registry of team types, ordered by id.
type ArcCatalog struct {
	Defs   []ArcDef
	ByID   map[int]ArcDef
	ByName map[string]int
	Digest string
}

type ArcDef struct {
	ID          int         `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Effects     []EffectDef `json:"effects"`
}

// EffectDef is a permanent node effect. Stat kinds add Amount to the stat;
// flag kinds set the flag when Amount > 0 and clear it when Amount < 0.
type EffectDef struct {
	Kind   string `json:"kind"` // "STABILITY","SUPPORT","SECURITY","SPIDER","TRACER","CONTACTS"
	Amount int    `json:"amount"`
}

func (e EffectDef) String() string {
	return fmt.Sprintf("%s%+d", e.Kind, e.Amount)
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadArcs(filepath.Join(configDir, "arcs.json"), &c.Arcs); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadArcs(path string, out *ArcCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := ParseArcs(raw, out); err != nil {
		return fmt.Errorf("arcs.json: %w", err)
	}
	return nil
}

// ParseArcs validates raw against the arcs schema and builds the catalogue.
// Arc ids must be dense (0..n-1) so they can index per-arc counters.
func ParseArcs(raw []byte, out *ArcCatalog) error {
	sch, err := jsonschema.CompileString("arcs.schema.json", arcsSchema)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	if err := sch.Validate(doc); err != nil {
		return err
	}

	var defs []ArcDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return err
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })

	out.Defs = defs
	out.ByID = make(map[int]ArcDef, len(defs))
	out.ByName = make(map[string]int, len(defs))
	for i, d := range defs {
		if d.ID != i {
			return fmt.Errorf("arc ids must be dense from 0: got %d at position %d", d.ID, i)
		}
		name := strings.ToUpper(strings.TrimSpace(d.Name))
		if _, dup := out.ByName[name]; dup {
			return fmt.Errorf("duplicate arc name %s", name)
		}
		out.ByID[d.ID] = d
		out.ByName[name] = d.ID
	}
	out.Digest = sha256Hex(raw)
	return nil
}

func (c *ArcCatalog) Len() int { return len(c.Defs) }

func (c *ArcCatalog) Arc(id int) (ArcDef, bool) {
	d, ok := c.ByID[id]
	return d, ok
}

// Name returns the arc name, or "UNKNOWN" for ids outside the catalogue.
func (c *ArcCatalog) Name(id int) string {
	if d, ok := c.ByID[id]; ok {
		return d.Name
	}
	return "UNKNOWN"
}
