package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestInit_DoesNotPanic(t *testing.T) {
	defer Init(false, false)

	Init(false, false)
	L().Info().Msg("test json info")

	Init(true, false)
	L().Debug().Msg("test json debug")

	Init(true, true)
	L().Debug().Msg("test human debug")
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	defer Init(false, false)

	log := WithComponent("runner")
	log.Info().Msg("hello")

	require.Contains(t, buf.String(), `"component":"runner"`)
}

func TestFromContext(t *testing.T) {
	var global, scoped bytes.Buffer
	SetLogger(zerolog.New(&global))
	defer Init(false, false)

	//nolint:staticcheck // nil context is part of the contract
	l := FromContext(nil)
	l.Info().Msg("fallback")
	require.Contains(t, global.String(), "fallback")

	ctx := WithLogger(context.Background(), zerolog.New(&scoped).With().Int("trial", 2).Logger())
	l = FromContext(ctx)
	l.Info().Msg("scoped")
	require.Contains(t, scoped.String(), `"trial":2`)
	require.NotContains(t, global.String(), "scoped")
}
