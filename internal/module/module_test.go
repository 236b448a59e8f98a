package module

import (
	"errors"
	"testing"

	"ips-guard/internal/param"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sizeModule struct {
	file    string
	limit   int64
	units   int
	begins  int
	failEnd bool
}

func (m *sizeModule) Name() string { return "size" }
func (m *sizeModule) Help() string { return "test module" }

func (m *sizeModule) Params() param.Table {
	return param.Table{
		{Name: "file", Type: param.String, Default: "stdout"},
		{Name: "limit", Type: param.Int, Range: "0:", Default: "0"},
		{Name: "units", Type: param.Enum, Range: "B | K | M | G", Default: "B"},
	}
}

func (m *sizeModule) Begin() error {
	m.begins++
	m.file, m.limit, m.units = "", 0, 0
	return nil
}

func (m *sizeModule) Set(v param.Value) error {
	switch {
	case v.Is("file"):
		m.file = v.String()
	case v.Is("limit"):
		m.limit = v.Int()
	case v.Is("units"):
		m.units = v.Enum()
	default:
		return errors.New("unhandled")
	}
	return nil
}

func (m *sizeModule) End() error {
	if m.failEnd {
		return errors.New("cannot finalize")
	}
	for ; m.units > 0; m.units-- {
		m.limit *= 1024
	}
	return nil
}

func TestLifecycle_HappyPath(t *testing.T) {
	m := &sizeModule{}
	l := NewLifecycle(m)
	assert.Equal(t, Uninitialized, l.State())

	require.NoError(t, l.Begin())
	assert.Equal(t, Accumulating, l.State())
	assert.Equal(t, "stdout", m.file)

	require.NoError(t, l.Set("limit", "10"))
	require.NoError(t, l.Set("units", "K"))
	require.NoError(t, l.End())

	assert.Equal(t, Finalized, l.State())
	assert.Equal(t, int64(10*1024), m.limit)
}

func TestLifecycle_SetBeforeBegin(t *testing.T) {
	l := NewLifecycle(&sizeModule{})
	err := l.Set("limit", "1")
	assert.ErrorIs(t, err, ErrNotAccumulating)

	err = l.End()
	assert.ErrorIs(t, err, ErrNotAccumulating)
}

func TestLifecycle_UnknownParameterRejects(t *testing.T) {
	l := NewLifecycle(&sizeModule{})
	require.NoError(t, l.Begin())

	err := l.Set("bogus", "1")
	assert.ErrorIs(t, err, param.ErrUnknownParameter)
	assert.Equal(t, Rejected, l.State())

	err = l.Set("limit", "1")
	assert.ErrorIs(t, err, ErrNotAccumulating)
	assert.ErrorIs(t, l.End(), ErrNotAccumulating)
}

func TestLifecycle_InvalidValueRejects(t *testing.T) {
	l := NewLifecycle(&sizeModule{})
	require.NoError(t, l.Begin())

	err := l.Set("units", "T")
	assert.ErrorIs(t, err, param.ErrInvalidValue)
	assert.Equal(t, Rejected, l.State())
}

func TestLifecycle_EndFailureRejects(t *testing.T) {
	l := NewLifecycle(&sizeModule{failEnd: true})
	require.NoError(t, l.Begin())
	require.Error(t, l.End())
	assert.Equal(t, Rejected, l.State())
}

func TestLifecycle_BeginAgainResetsToDefaults(t *testing.T) {
	m := &sizeModule{}
	require.NoError(t, Configure(m, []Pair{
		{Name: "file", Value: "alerts.txt"},
		{Name: "limit", Value: "3"},
		{Name: "units", Value: "M"},
	}))
	assert.Equal(t, "alerts.txt", m.file)
	assert.Equal(t, int64(3*1024*1024), m.limit)

	l := NewLifecycle(m)
	require.NoError(t, l.Begin())
	assert.Equal(t, "stdout", m.file)
	assert.Equal(t, int64(0), m.limit)
	assert.Equal(t, 0, m.units)
	require.NoError(t, l.End())
	assert.Equal(t, int64(0), m.limit)
}

func TestLifecycle_BeginRecoversFromRejected(t *testing.T) {
	l := NewLifecycle(&sizeModule{})
	require.NoError(t, l.Begin())
	require.Error(t, l.Set("bogus", "x"))

	require.NoError(t, l.Begin())
	assert.Equal(t, Accumulating, l.State())
	require.NoError(t, l.Set("limit", "5"))
	require.NoError(t, l.End())
}

func TestLifecycle_BareValueWithoutPositional(t *testing.T) {
	l := NewLifecycle(&sizeModule{})
	require.NoError(t, l.Begin())

	err := l.Set("", "10")
	assert.ErrorIs(t, err, param.ErrUnknownParameter)
	assert.Equal(t, Rejected, l.State())
}

func TestConfigure_StopsAtFirstError(t *testing.T) {
	m := &sizeModule{}
	err := Configure(m, []Pair{{Name: "limit", Value: "x"}, {Name: "units", Value: "G"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "size")
	assert.Equal(t, 0, m.units)
}
