package filter

import (
	"fmt"

	"github.com/robert-malhotra/h5pipe/internal/message"
)

// Pipeline applies an ordered list of filters to chunk data.
type Pipeline struct {
	filters []Filter
	// index of each filter in the pipeline message, for filter masks
	slots []int
}

// NewPipeline builds a pipeline from a filter pipeline message. A nil
// message yields an empty pipeline.
func NewPipeline(fp *message.FilterPipeline) (*Pipeline, error) {
	p := &Pipeline{}
	if fp == nil {
		return p, nil
	}
	for i, info := range fp.Filters {
		f, err := New(info)
		if err != nil {
			return nil, err
		}
		if f == nil {
			continue
		}
		p.filters = append(p.filters, f)
		p.slots = append(p.slots, i)
	}
	return p, nil
}

// Encode applies every filter in pipeline order.
func (p *Pipeline) Encode(input []byte) ([]byte, error) {
	data := input
	for _, f := range p.filters {
		var err error
		if data, err = f.Encode(data); err != nil {
			return nil, fmt.Errorf("%s encode: %w", Name(f.ID()), err)
		}
	}
	return data, nil
}

// Decode applies the filters in reverse order. Bit i of mask set means
// filter i of the pipeline message was skipped when the chunk was written.
func (p *Pipeline) Decode(input []byte, mask uint32) ([]byte, error) {
	data := input
	for i := len(p.filters) - 1; i >= 0; i-- {
		if mask&(1<<uint(p.slots[i])) != 0 {
			continue
		}
		var err error
		if data, err = p.filters[i].Decode(data); err != nil {
			return nil, fmt.Errorf("%s decode: %w", Name(p.filters[i].ID()), err)
		}
	}
	return data, nil
}

// Empty reports whether the pipeline has no filters.
func (p *Pipeline) Empty() bool {
	return len(p.filters) == 0
}

// Len returns the number of active filters.
func (p *Pipeline) Len() int {
	return len(p.filters)
}
