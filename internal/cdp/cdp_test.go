package cdp

import (
	"context"
	"encoding/json"
	"testing"
	"time"
	"web-testgen/internal/config"
	"web-testgen/internal/ports"
	"web-testgen/pkg/apperr"

	"github.com/chromedp/cdproto/dom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBindArgs(t *testing.T) {
	decl, err := bindArgs(tagNameFunc)
	require.NoError(t, err)
	assert.Equal(t, tagNameFunc, decl)

	decl, err = bindArgs(attributeFunc, `data-"x"`)
	require.NoError(t, err)
	assert.Contains(t, decl, `.apply(this, ["data-\"x\""])`)
	assert.Contains(t, decl, attributeFunc)
}

func TestQuadCenter(t *testing.T) {
	x, y, err := quadCenter(dom.Quad{10, 20, 30, 20, 30, 60, 10, 60})
	require.NoError(t, err)
	assert.Equal(t, 20.0, x)
	assert.Equal(t, 40.0, y)

	_, _, err = quadCenter(nil)
	assert.ErrorIs(t, err, errEmptyBox)
}

func TestLineageResult(t *testing.T) {
	var res lineageResult
	require.NoError(t, json.Unmarshal([]byte(`{"steps":[{"tag":"html","index":1},{"tag":"div","index":3}],"truncated":false}`), &res))

	steps, err := res.pathSteps()
	require.NoError(t, err)
	assert.Equal(t, []ports.PathStep{{Tag: "html", Index: 1}, {Tag: "div", Index: 3}}, steps)

	_, err = lineageResult{Truncated: true}.pathSteps()
	assert.ErrorIs(t, err, errLineageDepth)
}

func TestEngineNotLaunched(t *testing.T) {
	engine := NewEngine(Params{Config: config.Default(), Logger: zap.NewNop()})
	ctx := context.Background()

	assert.Equal(t, config.EngineChromedp, engine.Name())
	assert.False(t, engine.IsReady())

	err := engine.Navigate(ctx, "http://example.com", time.Second)
	assert.Equal(t, apperr.CodeBrowserNotReady, apperr.CodeOf(err))

	_, err = engine.Query(ctx, ports.CSS("button"))
	assert.Equal(t, apperr.CodeBrowserNotReady, apperr.CodeOf(err))

	require.NoError(t, engine.Close(ctx))
}

func TestTakeDialog(t *testing.T) {
	engine := NewEngine(Params{Config: config.Default(), Logger: zap.NewNop()})

	_, ok, err := engine.TakeDialog(context.Background(), 0)
	require.NoError(t, err)
	assert.False(t, ok)

	engine.dialogs = []string{"first", "second"}

	msg, ok, err := engine.TakeDialog(context.Background(), time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "first", msg)
	assert.Empty(t, engine.dialogs)
}
