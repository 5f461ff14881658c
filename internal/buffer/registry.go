package buffer

import (
	"github.com/krugerplant/linesim/internal/core"
	"github.com/krugerplant/linesim/internal/topology"
	"github.com/krugerplant/linesim/internal/workitem"
)

// Registry owns every buffer in the plant: per-line outgoing buffers,
// per-shop rework buffers, and per-(destShop,partType) part buffers.
//
// Buffer identification convention: the output buffer a line pushes
// completed items into is identified by the line's own key
// ({shop}-{line}). A downstream line reached via an upstream line's
// Routes pulls from that same id at its first station. line.Buffers may
// override the capacity under that same key; otherwise the shop's
// DefaultBufferCapacity applies.
type Registry struct {
	topo *topology.Topology

	byID map[string]*Buffer

	// predecessor maps a line key to the upstream line key that routes
	// into it, derived from Routes at Build time. Absent for lines that
	// are pure plant entry points (start stations only, no inbound
	// route).
	predecessor map[string]string
}

// Build constructs a Registry from a built Topology. Every line gets an
// output buffer keyed by its own line key; every shop gets a rework
// buffer; every required-part type referenced anywhere gets a part
// buffer scoped to the consuming line's shop.
func Build(t *topology.Topology) *Registry {
	r := &Registry{topo: t}
	r.rebuild()
	return r
}

// Reset rebuilds every buffer empty, used by Clock.Stop's full memory
// reset. The topology itself is immutable and untouched.
func (r *Registry) Reset() {
	r.rebuild()
}

func (r *Registry) rebuild() {
	t := r.topo
	r.byID = make(map[string]*Buffer)
	r.predecessor = make(map[string]string)

	for _, shop := range t.Shops {
		reworkID := core.ReworkBufferID(shop.Name)
		r.byID[reworkID] = New(reworkID, KindRework, shop.ReworkBufferCapacity)

		for _, line := range shop.Lines {
			capacity := shop.DefaultBufferCapacity
			if declared, ok := line.Buffers[line.Key]; ok {
				capacity = declared
			}
			r.byID[line.Key] = New(line.Key, KindNormal, capacity)

			for bufID, bufCap := range line.Buffers {
				if bufID == line.Key {
					continue
				}
				if _, exists := r.byID[bufID]; !exists {
					r.byID[bufID] = New(bufID, KindNormal, bufCap)
				}
			}
			for _, partType := range line.RequiredParts {
				partBufID := core.PartBufferID(shop.Name, partType)
				if _, exists := r.byID[partBufID]; !exists {
					r.byID[partBufID] = New(partBufID, KindPart, defaultPartBufferCapacity)
					r.byID[partBufID].Shop = shop.Name
					r.byID[partBufID].PartType = partType
				}
			}

			for _, destKey := range line.Routes {
				r.predecessor[destKey] = line.Key
			}
		}
	}
}

// Predecessor returns the upstream line key that routes into lineKey, if
// any.
func (r *Registry) Predecessor(lineKey string) (string, bool) {
	p, ok := r.predecessor[lineKey]
	return p, ok
}

const defaultPartBufferCapacity = 20

// Get looks up a buffer by id.
func (r *Registry) Get(id string) (*Buffer, bool) {
	b, ok := r.byID[id]
	return b, ok
}

// IDs returns every buffer id known to the registry, in no particular
// order. Used by read-only external views (status API, OPC UA export)
// that need to enumerate every buffer rather than look one up.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.byID))
	for id := range r.byID {
		out = append(out, id)
	}
	return out
}

// ReworkBuffer returns the shop-scoped rework buffer.
func (r *Registry) ReworkBuffer(shop string) (*Buffer, bool) {
	return r.Get(core.ReworkBufferID(shop))
}

// PartBuffer resolves the part buffer for a destination shop and part
// type.
func (r *Registry) PartBuffer(destShop, partType string) (*Buffer, bool) {
	return r.Get(core.PartBufferID(destShop, partType))
}

// FindModelAcrossBuffers enumerates models present in the first buffer
// and verifies presence of the same model in every other buffer in
// bufIDs. The first candidate model satisfied in every buffer wins;
// ties break by buffer enumeration order. store resolves item ids to
// models. Returns the matching model and, per buffer, the matched item
// id, or ok=false if no model satisfies every buffer.
func (r *Registry) FindModelAcrossBuffers(bufIDs []string, store *workitem.Store) (model string, matched map[string]string, ok bool) {
	if len(bufIDs) == 0 {
		return "", nil, false
	}
	first, exists := r.Get(bufIDs[0])
	if !exists {
		return "", nil, false
	}

	for _, candidateID := range first.Items() {
		candidate, found := store.Get(candidateID)
		if !found {
			continue
		}
		candidateModel := candidate.Model

		matched = map[string]string{bufIDs[0]: candidateID}
		satisfied := true
		for _, otherID := range bufIDs[1:] {
			otherBuf, exists := r.Get(otherID)
			if !exists {
				satisfied = false
				break
			}
			found := false
			for _, itemID := range otherBuf.Items() {
				item, ok := store.Get(itemID)
				if ok && item.Model == candidateModel {
					matched[otherID] = itemID
					found = true
					break
				}
			}
			if !found {
				satisfied = false
				break
			}
		}
		if satisfied {
			return candidateModel, matched, true
		}
	}

	return "", nil, false
}
