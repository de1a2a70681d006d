package usertype_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matrixsql/errors"
	"matrixsql/usertype"
)

func TestRegistry_RegisterAndResolve(t *testing.T) {
	r := usertype.NewRegistry()
	require.NoError(t, r.Register("tags", usertype.Define(newTagsMapper)))

	err := r.Register("tags", usertype.Define(newTagsMapper))
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))

	require.Error(t, r.Register("", usertype.Define(newTagsMapper)))
	assert.Equal(t, []string{"tags"}, r.Names())

	_, err = r.Resolve("missing", nil)
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))

	a, err := r.Resolve("tags", usertype.Parameters{"separator": "#", "x": "1"})
	require.NoError(t, err)
	b, err := r.Resolve("tags", usertype.Parameters{"x": "1", "separator": "#"})
	require.NoError(t, err)
	assert.Same(t, a, b)

	c, err := r.Resolve("tags", usertype.Parameters{"separator": ";"})
	require.NoError(t, err)
	assert.NotSame(t, a, c)

	text, err := c.Format([]string{"1", "2"})
	require.NoError(t, err)
	assert.Equal(t, "1;2", text)
}

func TestRegistry_ConfigureFailureIsNotCached(t *testing.T) {
	r := usertype.NewRegistry()
	r.MustRegister("tags", usertype.Define(newTagsMapper))

	_, err := r.Resolve("tags", usertype.Parameters{"separator": ""})
	require.Error(t, err)
	_, err = r.Resolve("tags", usertype.Parameters{"separator": ""})
	require.Error(t, err)

	assert.Panics(t, func() { r.MustResolve("tags", usertype.Parameters{"separator": ""}) })
}

func TestRegistry_SettingsFallback(t *testing.T) {
	r := usertype.NewRegistry().WithSettings(usertype.SettingsFunc(func(name string) usertype.Parameters {
		if name == "tags" {
			return usertype.Parameters{"separator": "::"}
		}
		return nil
	}))
	r.MustRegister("tags", usertype.Define(newTagsMapper))

	fromSettings := r.MustResolve("tags", nil)
	text, err := fromSettings.Format([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "a::b", text)

	explicit := r.MustResolve("tags", usertype.Parameters{"separator": "::"})
	assert.Same(t, fromSettings, explicit)

	declared := r.MustResolve("tags", usertype.Parameters{"separator": "/"})
	text, err = declared.Format([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "a/b", text)
}

func TestRegistry_ConcurrentResolveBuildsOnce(t *testing.T) {
	var built atomic.Int32
	r := usertype.NewRegistry()
	define := usertype.Define(newTagsMapper)
	r.MustRegister("tags", func() (usertype.UserType, error) {
		built.Add(1)
		return define()
	})

	const workers = 16
	results := make([]usertype.UserType, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.MustResolve("tags", usertype.Parameters{"separator": "#"})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), built.Load())
	for _, ut := range results {
		assert.Same(t, results[0], ut)
	}
}

func TestParseParameters(t *testing.T) {
	p, err := usertype.ParseParameters("separator=#, pattern=yyyyMMdd")
	require.NoError(t, err)
	assert.Equal(t, usertype.Parameters{"separator": "#", "pattern": "yyyyMMdd"}, p)

	p, err = usertype.ParseParameters("")
	require.NoError(t, err)
	assert.Empty(t, p)

	_, err = usertype.ParseParameters("separator")
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))

	assert.Equal(t, "d", p.Lookup("missing", "d"))
	var none usertype.Parameters
	assert.Equal(t, "d", none.Lookup("k", "d"))
	assert.Equal(t, usertype.Parameters{"a": "2", "b": "3"}, usertype.Parameters{"a": "1", "b": "3"}.Merge(usertype.Parameters{"a": "2"}))
}
