package airindex

import (
	"context"
	"math"
	"os"
	"sync"

	"github.com/airindex-go/airindex/internal/scratch"
	"github.com/airindex-go/airindex/internal/topk"
)

// PlannerMode selects the planner's termination rule (spec §4.4, GLOSSARY
// "enb"/"enb_layers").
type PlannerMode int

const (
	// ModeFree ("enb") stops as soon as a layer's pieces fit a single root
	// page within RootCap bytes.
	ModeFree PlannerMode = iota
	// ModeFixed ("enb_layers") stops at exactly TargetLayers layers.
	ModeFixed
)

func (m PlannerMode) String() string {
	if m == ModeFixed {
		return "enb_layers"
	}
	return "enb"
}

// ParsePlannerMode maps a CLI-facing mode name to a PlannerMode: one of the
// two termination rules the top-K planner itself runs under (spec §6.1
// `--index-builder`). A third `--index-builder` value, "btree", names a
// separate, non-planner build path (BuildBTreeIndex) and intentionally has
// no PlannerMode or ParsePlannerMode case — see DESIGN.md's Open Question
// (b) entry for why it doesn't run through this planner at all.
func ParsePlannerMode(s string) (PlannerMode, error) {
	switch s {
	case "enb":
		return ModeFree, nil
	case "enb_layers":
		return ModeFixed, nil
	default:
		return 0, NewError(ConfigError, "unknown planner mode %q", s)
	}
}

// PlannerConfig is the IndexPlanner's input (spec §4.4): the drafter set to
// try, the load (page-size) palette's endpoints and geometric multiplier,
// the planner mode, the top-K beam width, and the root page cap.
type PlannerConfig struct {
	Drafters       []DrafterID
	LowLoad        uint32
	HighLoad       uint32
	StepMultiplier float64 // geometric ratio r; P_{i+1} = ceil(P_i * r)
	Mode           PlannerMode
	TargetLayers   int // required, >0, when Mode == ModeFixed
	TopK           int // beam width K, default 1
	RootCap        uint32
	Workers        int

	// UseScratch stages candidate layer pages in an mmap'd scratch buffer
	// (internal/scratch) instead of the Go heap, trading a scratch
	// directory for lower GC pressure during a wide (high-K) search.
	// Scratch slots are not reclaimed between stages: every candidate's
	// pages stay allocated until Build returns, when the chosen layers'
	// pages are copied to the heap and every scratch buffer is closed.
	UseScratch bool
	// ScratchDir is where scratch segment files are created when
	// UseScratch is set. Empty uses a fresh temp directory, removed when
	// Build returns.
	ScratchDir string
}

// Validate checks the configuration before any I/O or fitting happens
// (spec §7's ConfigError: "reported before any I/O"), filling in defaults
// for zero-valued optional fields.
func (c *PlannerConfig) Validate() error {
	if len(c.Drafters) == 0 {
		return NewError(ConfigError, "planner: no drafters configured")
	}
	if c.LowLoad == 0 {
		return NewError(ConfigError, "planner: low-load must be > 0")
	}
	if c.LowLoad < MinPageSize {
		return NewError(ConfigError, "planner: low-load %d < minimum page size %d", c.LowLoad, MinPageSize)
	}
	if c.HighLoad > MaxPageSize {
		return NewError(ConfigError, "planner: high-load %d > maximum page size %d", c.HighLoad, MaxPageSize)
	}
	if c.HighLoad < c.LowLoad {
		return NewError(ConfigError, "planner: high-load %d < low-load %d", c.HighLoad, c.LowLoad)
	}
	if c.StepMultiplier <= 1.0 {
		return NewError(ConfigError, "planner: step multiplier must be > 1.0, got %v", c.StepMultiplier)
	}
	if c.Mode == ModeFixed && c.TargetLayers < 1 {
		return NewError(ConfigError, "planner: enb_layers requires --target-layers")
	}
	if c.TopK < 1 {
		c.TopK = DefaultTopK
	}
	if c.RootCap == 0 {
		c.RootCap = DefaultRootCap
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	return nil
}

// LoadPalette expands (LowLoad, HighLoad, StepMultiplier) into the
// geometric sequence P_0=LowLoad, P_{i+1}=ceil(P_i*r), ending with the
// first entry >= HighLoad, which exceeds HighLoad when the sequence does
// not land on it exactly (spec §4.4, §9 Open Question (a): treated as
// multiplicative).
func (c *PlannerConfig) LoadPalette() []uint32 {
	var out []uint32
	p := float64(c.LowLoad)
	for {
		pu := uint32(math.Ceil(p))
		out = append(out, pu)
		if pu >= c.HighLoad {
			break
		}
		next := float64(pu) * c.StepMultiplier
		if uint32(math.Ceil(next)) <= pu {
			break // multiplier too close to 1 to make progress; stop rather than loop forever
		}
		p = next
	}
	return out
}

// chain is one surviving partial index during the bottom-up DP: the built
// Layers so far, leaf first (bottom-up, the order they're produced in),
// the ModelDraft whose pieces became the most recently built (topmost so
// far) layer, and the cumulative own-cost of every layer built so far.
type chain struct {
	layers         []*Layer // bottom-up: layers[0] is the leaf
	topDraft       *ModelDraft
	cumulativeCost float64
}

// chainCandidate adapts chain to internal/topk.Candidate using spec §4.2's
// tie-break order on the chain's most recently added layer.
type chainCandidate struct{ c *chain }

func (cc chainCandidate) Cost() float64 { return cc.c.cumulativeCost }

func (cc chainCandidate) Less(other topk.Candidate) bool {
	o := other.(chainCandidate)
	return compareDrafts(cc.c.topDraft, o.c.topDraft) < 0
}

// Planner is the IndexPlanner (spec §4.4): the auto-tuner that explores
// (drafter, load) candidates per layer and keeps the top-K cheapest chains
// at each stage boundary.
type Planner struct {
	cfg     PlannerConfig
	profile StorageProfile
	builder *LayerBuilder

	scratchMu      sync.Mutex
	scratchDir     string
	scratchOwnsDir bool
	scratchBufs    map[uint32]*scratch.Buffer
}

// NewPlanner validates cfg and constructs a Planner bound to profile.
func NewPlanner(cfg PlannerConfig, profile StorageProfile) (*Planner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, NewError(ConfigError, "planner: nil storage profile")
	}
	return &Planner{cfg: cfg, profile: profile, builder: NewLayerBuilder(cfg.Workers)}, nil
}

// scratchFor lazily opens (or reuses) the scratch buffer sized for
// pageSize. Returns nil, nil when UseScratch is off.
func (p *Planner) scratchFor(pageSize uint32) (*scratch.Buffer, error) {
	if !p.cfg.UseScratch {
		return nil, nil
	}
	p.scratchMu.Lock()
	defer p.scratchMu.Unlock()

	if p.scratchDir == "" {
		dir := p.cfg.ScratchDir
		if dir == "" {
			tmp, err := os.MkdirTemp("", "airindex-scratch-*")
			if err != nil {
				return nil, err
			}
			dir = tmp
			p.scratchOwnsDir = true
		}
		p.scratchDir = dir
		p.scratchBufs = make(map[uint32]*scratch.Buffer)
	}
	if buf, ok := p.scratchBufs[pageSize]; ok {
		return buf, nil
	}
	path := p.scratchDir + "/pages." + uintSuffix(pageSize)
	buf, err := scratch.New(path, pageSize, scratch.DefaultInitialCap)
	if err != nil {
		return nil, err
	}
	p.scratchBufs[pageSize] = buf
	return buf, nil
}

// closeScratch releases every scratch buffer opened during a Build call.
func (p *Planner) closeScratch() {
	p.scratchMu.Lock()
	defer p.scratchMu.Unlock()
	for _, buf := range p.scratchBufs {
		buf.Close()
	}
	p.scratchBufs = nil
	if p.scratchOwnsDir && p.scratchDir != "" {
		os.RemoveAll(p.scratchDir)
	}
	p.scratchDir = ""
	p.scratchOwnsDir = false
}

func uintSuffix(pageSize uint32) string {
	const digits = "0123456789"
	if pageSize == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for pageSize > 0 {
		i--
		buf[i] = digits[pageSize%10]
		pageSize /= 10
	}
	return string(buf[i:])
}

// candidateSpec is one (drafter, load) pair from the search space.
type candidateSpec struct {
	drafter DrafterID
	page    uint32
}

func (p *Planner) candidateSpecs() []candidateSpec {
	palette := p.cfg.LoadPalette()
	specs := make([]candidateSpec, 0, len(p.cfg.Drafters)*len(palette))
	for _, d := range p.cfg.Drafters {
		for _, load := range palette {
			specs = append(specs, candidateSpec{drafter: d, page: load})
		}
	}
	return specs
}

// maxStages bounds the DP's stage loop: spec §4.4 expects h <= 5 in
// practice since N̂ shrinks geometrically each layer; this is a safety
// backstop against a misconfigured palette that never shrinks the piece
// count, not a normal termination path.
const maxStages = 64

// Build runs the bottom-up top-K DP (spec §4.4) over kb and returns the
// chosen layered Index. recordSize is the leaf record's serialized byte
// width, used by leaf-stage drafters to derive ε_max.
func (p *Planner) Build(ctx context.Context, kb *KeyBuffer, recordSize uint32) (*Index, error) {
	if kb.Len() == 0 {
		return nil, NewError(ConfigError, "planner: empty key buffer")
	}
	defer p.closeScratch()
	minKey, _ := kb.MinKey()
	maxKey, _ := kb.MaxKey()

	table, err := p.fitStage(ctx, kb, recordSize, nil)
	if err != nil {
		return nil, err
	}

	for depth := 1; depth <= maxStages; depth++ {
		if winner := p.terminal(table, depth); winner != nil {
			return p.finish(winner, recordSize, minKey, maxKey, kb.DataLength())
		}
		if p.cfg.Mode == ModeFixed && depth >= p.cfg.TargetLayers {
			// terminal already checked every chain at (and, by the loop
			// reaching here, past) the required depth and none fit a single
			// root page: no later depth can satisfy enb_layers either, since
			// terminal rejects every depth != TargetLayers outright. Fail
			// now instead of burning the rest of maxStages on a foregone
			// conclusion.
			return nil, NewError(BuildError, "planner: enb_layers: no chain reached a single-page root at target depth %d", p.cfg.TargetLayers)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := p.nextStage(ctx, table, recordSize)
		if err != nil {
			return nil, err
		}
		table = next
	}
	return nil, NewError(BuildError, "planner: no chain reached a single-page root within %d stages", maxStages)
}

// fitStage runs stage 0 (leaf) when parents is nil, or a stage-j -> j+1
// refit over each surviving chain's synthetic key sequence otherwise. All
// candidate fits are independent and run on a bounded worker pool (spec
// §5: "the planner dispatches candidate fits ... in parallel").
func (p *Planner) fitStage(ctx context.Context, kb *KeyBuffer, recordSize uint32, parents []*chain) (*topk.Table, error) {
	specs := p.candidateSpecs()
	table := topk.New(p.cfg.TopK)

	type job struct {
		parent *chain
		spec   candidateSpec
	}
	var jobs []job
	if parents == nil {
		for _, s := range specs {
			jobs = append(jobs, job{nil, s})
		}
	} else {
		for _, parent := range parents {
			for _, s := range specs {
				jobs = append(jobs, job{parent, s})
			}
		}
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, p.cfg.Workers)
	var mu sync.Mutex
	attempted := 0
	succeeded := 0

	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(j job) {
			defer wg.Done()
			defer func() { <-sem }()

			d, ok := DrafterByID(j.spec.drafter)
			if !ok {
				return
			}
			draft, err := d.Fit(kb, recordSize, j.spec.page)
			mu.Lock()
			attempted++
			mu.Unlock()
			if err != nil {
				return // FitError: skip this candidate (spec §7)
			}
			scratchBuf, err := p.scratchFor(j.spec.page)
			if err != nil {
				return
			}
			layer, err := p.builder.Build(ctx, draft.Pieces, kb.Dtype(), j.spec.drafter, j.spec.page, p.profile, scratchBuf)
			if err != nil {
				return
			}

			c := &chain{topDraft: draft, cumulativeCost: layer.OwnCost}
			if j.parent != nil {
				c.layers = append(append([]*Layer{}, j.parent.layers...), layer)
				c.cumulativeCost += j.parent.cumulativeCost
			} else {
				c.layers = []*Layer{layer}
			}

			mu.Lock()
			succeeded++
			mu.Unlock()
			table.Insert(chainCandidate{c})
		}(j)
	}
	wg.Wait()

	if succeeded == 0 {
		return nil, NewError(BuildError, "planner: all %d candidate fits failed at this stage", attempted)
	}
	return table, nil
}

func (p *Planner) nextStage(ctx context.Context, table *topk.Table, recordSize uint32) (*topk.Table, error) {
	entries := table.Entries()
	parents := make([]*chain, len(entries))
	for i, e := range entries {
		parents[i] = e.(chainCandidate).c
	}

	// Every surviving chain's top layer becomes a synthetic key sequence
	// (spec §4.4): key = piece's lo_key, offset = the byte extent of the
	// page that piece was packed onto.
	var lastErr error
	tables := make([]*topk.Table, 0, len(parents))
	for _, parent := range parents {
		top := parent.layers[len(parent.layers)-1]
		stride := pieceStride(top.Dtype, parent.topDraft.DrafterID)
		capacity := (int(top.PageSize) - PageHeaderSize) / stride
		if capacity < 1 {
			continue
		}
		extents := make([]PageExtent, len(parent.topDraft.Pieces))
		for i := range parent.topDraft.Pieces {
			pageIdx := i / capacity
			if pageIdx >= len(top.Extents) {
				pageIdx = len(top.Extents) - 1
			}
			extents[i] = top.Extents[pageIdx]
		}
		synthetic := syntheticFromPieces(parent.topDraft.Pieces, extents)

		t, err := p.fitStage(ctx, synthetic, 1, []*chain{parent})
		if err != nil {
			lastErr = err
			continue
		}
		tables = append(tables, t)
	}
	if len(tables) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, NewError(BuildError, "planner: no surviving chain could be refit at the next stage")
	}

	merged := topk.New(p.cfg.TopK)
	for _, t := range tables {
		for _, e := range t.Entries() {
			merged.Insert(e)
		}
	}
	return merged, nil
}

// terminal looks for a surviving chain whose top layer already fits a
// single page no larger than RootCap (spec §4.4: "layer 0 is a single page
// whose size is <= P0'"), returning the cheapest such chain, or nil if none
// qualifies yet. In ModeFixed it only accepts a chain once depth equals
// TargetLayers.
func (p *Planner) terminal(table *topk.Table, depth int) *chain {
	if p.cfg.Mode == ModeFixed && depth != p.cfg.TargetLayers {
		return nil
	}
	var best *chain
	var bestTotal float64
	for _, e := range table.Entries() {
		c := e.(chainCandidate).c
		top := c.layers[len(c.layers)-1]
		if len(top.Pages) != 1 {
			continue
		}
		if uint32(len(top.Pages[0])) > p.cfg.RootCap {
			continue
		}
		// spec §4.4: "Add the final leaf-to-data-blob read cost to every
		// chain when comparing" — the leaf's own page size bounds that read.
		leaf := c.layers[0]
		total := c.cumulativeCost + p.profile.Cost(1, uint64(leaf.PageSize))
		if best == nil || total < bestTotal {
			best, bestTotal = c, total
		}
	}
	// best is nil here exactly when no surviving chain fits a single root
	// page — at the required depth in ModeFixed (Build treats that as
	// immediate, fail-fast infeasibility) or simply "not yet" in ModeFree
	// (Build tries the next stage).
	return best
}

// finish reverses the winning chain's bottom-up layers into root-to-leaf
// Index order and resolves the final leaf-to-data-blob read cost that spec
// §4.4 adds "to every chain when comparing".
func (p *Planner) finish(c *chain, recordSize uint32, minKey, maxKey, dataLen uint64) (*Index, error) {
	layers := make([]*Layer, len(c.layers))
	for i, l := range c.layers {
		layers[len(c.layers)-1-i] = l
	}
	if p.cfg.UseScratch {
		// scratch-backed pages are unmapped when Build returns; the chosen
		// layers keep heap copies.
		for _, l := range layers {
			for i, pg := range l.Pages {
				l.Pages[i] = append([]byte(nil), pg...)
			}
		}
	}
	ix := &Index{
		Layers:      layers,
		Dtype:       layers[len(layers)-1].Dtype,
		RecordSize:  recordSize,
		DataBlobLen: dataLen,
		MinKey:      minKey,
		MaxKey:      maxKey,
	}
	if ap, ok := p.profile.(AffineProfile); ok {
		ix.Profile = ap
	}
	return ix, nil
}

// SweepTopK builds one Index per requested beam width, reusing the same
// KeyBuffer and config (spec §4.4: "the buildtopk action exposes K as a
// hyperparameter").
func (p *Planner) SweepTopK(ctx context.Context, kb *KeyBuffer, recordSize uint32, ks []int) ([]*Index, error) {
	out := make([]*Index, 0, len(ks))
	for _, k := range ks {
		cfg := p.cfg
		cfg.TopK = k
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		sweep := &Planner{cfg: cfg, profile: p.profile, builder: NewLayerBuilder(cfg.Workers)}
		ix, err := sweep.Build(ctx, kb, recordSize)
		if err != nil {
			return nil, err
		}
		out = append(out, ix)
	}
	return out, nil
}
