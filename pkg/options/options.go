// Package options loads the campaign option lists and hierarchies the facet
// indexes are built from.
package options

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/matst80/slask-audience/pkg/types"
)

type Source interface {
	Fetch(ctx context.Context) (*types.CampaignOptions, error)
}

// FallbackSource tries each source in order and returns the first success.
type FallbackSource []Source

func (f FallbackSource) Fetch(ctx context.Context) (*types.CampaignOptions, error) {
	if len(f) == 0 {
		return nil, fmt.Errorf("no options source configured")
	}
	var errs []error
	for i, src := range f {
		if src == nil {
			continue
		}
		opts, err := src.Fetch(ctx)
		if err == nil && opts != nil {
			if i > 0 {
				log.Printf("options loaded from fallback source %d", i)
			}
			return opts, nil
		}
		if err == nil {
			err = fmt.Errorf("source %d returned no options", i)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Printf("options source %d failed: %v", i, err)
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("all options sources failed: %w", errors.Join(errs...))
}
