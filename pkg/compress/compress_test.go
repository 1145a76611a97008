package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	payloads := []struct {
		name string
		data []byte
	}{
		{"nil", nil},
		{"empty", []byte{}},
		{"small", []byte(`{"id":"s1"}`)},
		{"repetitive", bytes.Repeat([]byte(`{"name":"Rope","weight":0.15},`), 2000)},
		{"incompressible", sequence(10000)},
	}

	for _, ct := range []Type{TypeNone, TypeSnappy, TypeZstd, TypeLZ4} {
		c, err := New(ct)
		require.NoError(t, err)
		assert.Equal(t, string(ct), c.Name())

		for _, p := range payloads {
			t.Run(string(ct)+"/"+p.name, func(t *testing.T) {
				compressed, err := c.Compress(p.data)
				require.NoError(t, err)

				out, err := c.Decompress(compressed)
				require.NoError(t, err)
				if p.data == nil {
					assert.Nil(t, out)
					return
				}
				assert.True(t, bytes.Equal(p.data, out))
			})
		}
	}
}

func TestCompressionRatio(t *testing.T) {
	data := bytes.Repeat([]byte("hello world "), 10000)

	for _, ct := range []Type{TypeSnappy, TypeZstd, TypeLZ4} {
		compressed, err := MustNew(ct).Compress(data)
		require.NoError(t, err)
		assert.Greater(t, float64(len(data))/float64(len(compressed)), 2.0, "type %s", ct)
	}
}

func TestLZ4Corrupt(t *testing.T) {
	c := MustNew(TypeLZ4)
	for _, bad := range [][]byte{{}, {0x05}, {0x05, 9, 1, 2}, {0x05, lz4Raw, 1}} {
		_, err := c.Decompress(bad)
		assert.Error(t, err)
	}
}

func TestRegistry(t *testing.T) {
	custom := Type("custom")
	Register(custom, func() (Compressor, error) { return noneCompressor{}, nil })
	assert.True(t, IsRegistered(custom))
	assert.Contains(t, List(), custom)

	Unregister(custom)
	assert.False(t, IsRegistered(custom))

	_, err := New(custom)
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.Panics(t, func() { MustNew(custom) })

	assert.Equal(t, []Type{TypeLZ4, TypeNone, TypeSnappy, TypeZstd}, List())
}

func sequence(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 256)
	}
	return b
}

func BenchmarkSnappyCompress(b *testing.B) {
	c := MustNew(TypeSnappy)
	data := bytes.Repeat([]byte("hello world "), 10000)
	for i := 0; i < b.N; i++ {
		_, _ = c.Compress(data)
	}
}
