package airindex

// Index is a built, queryable layered index (spec §3): an ordered chain of
// Layers from root to leaf, plus enough metadata to resolve leaf predictions
// into the data blob. Layers[0] is the root (a single page); every piece in
// Layers[j] predicts a PageExtent into Layers[j+1], and every piece in the
// last layer predicts a PageExtent into the data blob.
type Index struct {
	Layers      []*Layer
	Dtype       KeyDType
	RecordSize  uint32
	DataBlobURL string
	DataBlobLen uint64
	MinKey      uint64
	MaxKey      uint64
	Profile     AffineProfile
}

// Depth is the number of layers, k in spec §3's notation.
func (ix *Index) Depth() int { return len(ix.Layers) }

// Root returns the single-page root layer.
func (ix *Index) Root() *Layer {
	if len(ix.Layers) == 0 {
		return nil
	}
	return ix.Layers[0]
}

// Leaf returns the bottom layer, whose pieces predict into the data blob.
func (ix *Index) Leaf() *Layer {
	if len(ix.Layers) == 0 {
		return nil
	}
	return ix.Layers[len(ix.Layers)-1]
}
