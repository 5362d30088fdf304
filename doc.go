// Package airindex builds and serves a learned, hierarchical secondary index
// over an immutable sorted key-to-offset dataset that lives on high-latency
// external storage.
//
// Given a sorted sequence of keys, a storage cost model, and a palette of
// candidate piecewise-model "drafters", the planner searches the space of
// layered index structures and emits the one with the lowest predicted
// expected query cost. At query time, the same layered structure is walked
// top-down: one bounded read per layer narrows the search until the final
// layer yields the byte range on the data blob that holds the answer.
//
// Building an index:
//
//	kb := airindex.NewKeyBuffer(airindex.KeyDTypeUint64)
//	kb.Append(0, 0)
//	kb.Append(1, 8)
//	// ... append the rest of the sorted (key, offset) pairs
//
//	profile := airindex.AffineProfile{LatencyNs: 50_000_000, BandwidthMBps: 12}
//	cfg := airindex.PlannerConfig{
//	    Drafters: []airindex.DrafterID{airindex.DrafterIDStep, airindex.DrafterIDBandGreedy},
//	    LowLoad: 256, HighLoad: 4096, StepMultiplier: 4,
//	}
//	planner, err := airindex.NewPlanner(cfg, profile)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	idx, err := planner.Build(context.Background(), kb, recordSize)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = airindex.WriteIndex(idx, "file:///data/index", "file:///data/dataset.bin")
//
// Querying an index:
//
//	r, err := airindex.OpenReader("file:///data/index")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	extent, err := r.Lookup(context.Background(), 500_000)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// fetch extent.Offset..extent.Offset+extent.Length from the data blob
package airindex
