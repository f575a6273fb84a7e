package jchem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/turtacn/CTS-Broker/internal/domain/structure"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/cache"
)

// CachedStandardizer memoizes standardizer responses. Errors and empty
// responses are never cached.
type CachedStandardizer struct {
	next  structure.Standardizer
	cache *cache.Tiered
}

var _ structure.Standardizer = (*CachedStandardizer)(nil)

func NewCachedStandardizer(next structure.Standardizer, c *cache.Tiered) *CachedStandardizer {
	return &CachedStandardizer{next: next, cache: c}
}

func (s *CachedStandardizer) ApplyActions(ctx context.Context, smiles string, actions []structure.Action) (*structure.ActionResult, error) {
	names := structure.ActionNames(actions)
	key := cacheKey("std", smiles, strings.Join(names, ","))

	var out structure.ActionResult
	err := s.cache.GetOrLoad(ctx, "standardize", key, &out, func(ctx context.Context) (interface{}, error) {
		res, err := s.next.ApplyActions(ctx, smiles, actions)
		if err != nil {
			return nil, err
		}
		if _, err := res.Last(); err != nil {
			return nil, err
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *CachedStandardizer) GetMass(ctx context.Context, smiles string) (*structure.MassResult, error) {
	key := cacheKey("mass", smiles, "")

	var out structure.MassResult
	err := s.cache.GetOrLoad(ctx, "mass", key, &out, func(ctx context.Context) (interface{}, error) {
		res, err := s.next.GetMass(ctx, smiles)
		if err != nil {
			return nil, err
		}
		if _, err := res.Mass(); err != nil {
			return nil, err
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// cacheKey is "<op>:<sha256(op, structure, extra)>".
func cacheKey(op, smiles, extra string) string {
	h := sha256.New()
	h.Write([]byte(op))
	h.Write([]byte{0})
	h.Write([]byte(smiles))
	h.Write([]byte{0})
	h.Write([]byte(extra))
	return op + ":" + hex.EncodeToString(h.Sum(nil))
}
