package jchem

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CTS-Broker/internal/domain/structure"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/cache"
	"github.com/turtacn/CTS-Broker/internal/testutil"
	"github.com/turtacn/CTS-Broker/pkg/errors"
)

func newCached() (*CachedStandardizer, *testutil.MockStandardizer) {
	next := new(testutil.MockStandardizer)
	tiered := cache.NewTiered(cache.NewLocal(time.Minute, time.Minute), time.Minute)
	return NewCachedStandardizer(next, tiered), next
}

func TestCachedStandardizer_ApplyActionsCached(t *testing.T) {
	t.Parallel()
	c, next := newCached()
	neutralize := []structure.Action{structure.ActionNeutralize}
	next.On("ApplyActions", mock.Anything, "CC(=O)[O-]", neutralize).
		Return(testutil.Results("CC(=O)O"), nil).Once()

	for i := 0; i < 3; i++ {
		res, err := c.ApplyActions(context.Background(), "CC(=O)[O-]", neutralize)
		require.NoError(t, err)
		assert.Equal(t, []string{"CC(=O)O"}, res.Results)
	}
	next.AssertNumberOfCalls(t, "ApplyActions", 1)
}

func TestCachedStandardizer_KeysIncludeActions(t *testing.T) {
	t.Parallel()
	c, next := newCached()
	clearStereo := []structure.Action{structure.ActionClearStereo}
	untransform := []structure.Action{structure.ActionUntransform}
	next.On("ApplyActions", mock.Anything, "C", clearStereo).Return(testutil.Results("A"), nil).Once()
	next.On("ApplyActions", mock.Anything, "C", untransform).Return(testutil.Results("B"), nil).Once()

	a, err := c.ApplyActions(context.Background(), "C", clearStereo)
	require.NoError(t, err)
	b, err := c.ApplyActions(context.Background(), "C", untransform)
	require.NoError(t, err)
	assert.Equal(t, "A", a.Results[0])
	assert.Equal(t, "B", b.Results[0])
}

func TestCachedStandardizer_ErrorsNotCached(t *testing.T) {
	t.Parallel()
	c, next := newCached()
	next.On("GetMass", mock.Anything, "CCO").Return(nil, stderrors.New("down")).Once()
	next.On("GetMass", mock.Anything, "CCO").Return(testutil.Mass(46.07), nil).Once()

	_, err := c.GetMass(context.Background(), "CCO")
	require.Error(t, err)

	res, err := c.GetMass(context.Background(), "CCO")
	require.NoError(t, err)
	m, _ := res.Mass()
	assert.Equal(t, 46.07, m)

	_, err = c.GetMass(context.Background(), "CCO")
	require.NoError(t, err)
	next.AssertNumberOfCalls(t, "GetMass", 2)
}

func TestCachedStandardizer_EmptyResponsesNotCached(t *testing.T) {
	t.Parallel()
	c, next := newCached()
	next.On("GetMass", mock.Anything, "X").Return(&structure.MassResult{}, nil)
	next.On("ApplyActions", mock.Anything, "X", mock.Anything).Return(testutil.Results(), nil)

	for i := 0; i < 2; i++ {
		_, err := c.GetMass(context.Background(), "X")
		assert.True(t, errors.IsCode(err, errors.ErrCodeMalformedResponse))
		_, err = c.ApplyActions(context.Background(), "X", []structure.Action{structure.ActionTransform})
		assert.True(t, errors.IsCode(err, errors.ErrCodeMalformedResponse))
	}
	next.AssertNumberOfCalls(t, "GetMass", 2)
	next.AssertNumberOfCalls(t, "ApplyActions", 2)
}

func TestCacheKey(t *testing.T) {
	t.Parallel()
	a := cacheKey("std", "CCO", "neutralize")
	assert.Equal(t, a, cacheKey("std", "CCO", "neutralize"))
	assert.NotEqual(t, a, cacheKey("std", "CCO", "transform"))
	assert.NotEqual(t, cacheKey("std", "CC", "Oneutralize"), cacheKey("std", "CCO", "neutralize"))
	assert.Regexp(t, `^std:[0-9a-f]{64}$`, a)
}
