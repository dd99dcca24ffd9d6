package v1

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmforge/internal/core/numerator"
	"crmforge/internal/metadata"
)

func TestAutoNumberFunc_PrefixFromAPIName(t *testing.T) {
	var gotCfg numerator.Config
	gen := &numerator.MockGenerator{
		GetNextNumberFunc: func(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
			gotCfg = cfg
			return cfg.Prefix + "-2026-00042", nil
		},
	}

	fn := autoNumberFunc(gen)
	require.NotNil(t, fn)

	number, err := fn(context.Background(), metadata.FieldDescriptor{
		APIName:   "dealNumber",
		FieldType: metadata.TypeAutoNumber,
	})
	require.NoError(t, err)

	assert.Equal(t, "DEAL", gotCfg.Prefix)
	assert.Equal(t, "DEAL-2026-00042", number)
}

func TestAutoNumberFunc_APINameWithoutSuffix(t *testing.T) {
	gen := &numerator.MockGenerator{
		GetNextNumberFunc: func(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
			return cfg.Prefix + "-00001", nil
		},
	}

	fn := autoNumberFunc(gen)

	number, err := fn(context.Background(), metadata.FieldDescriptor{
		APIName:   "ticket",
		FieldType: metadata.TypeAutoNumber,
	})
	require.NoError(t, err)
	assert.Equal(t, "TICKET-00001", number)
}

func TestAutoNumberFunc_NilGenerator(t *testing.T) {
	assert.Nil(t, autoNumberFunc(nil))
}
