package media

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefKind(t *testing.T) {
	cases := map[Ref]Kind{
		"data:image/png;base64,AAAA":               KindInline,
		"blob:http://localhost/1234":               KindLocal,
		"local:upload-1":                           KindLocal,
		Placeholder:                                KindPlaceholder,
		"https://bucket.s3.amazonaws.com/a.jpg":    KindDurable,
		"memory://neuroscan/owners/a/images/1.jpg": KindDurable,
	}
	for ref, want := range cases {
		assert.Equal(t, want, ref.Kind(), string(ref))
	}
	assert.False(t, Ref("").IsDurable())
	assert.True(t, Ref("https://x/y.jpg").IsDurable())
}

func TestDataURIRoundTrip(t *testing.T) {
	ref := DataURI("image/jpeg", []byte{0xff, 0xd8, 0xff})
	mt, data, err := ref.Decode()
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mt)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, data)

	_, _, err = Ref("https://x/y.jpg").Decode()
	assert.ErrorIs(t, err, ErrNotInline)

	_, _, err = Ref("data:image/png;base64,@@@").Decode()
	assert.Error(t, err)
}

func TestResolveFirstSuccessWins(t *testing.T) {
	calls := 0
	ref, via, err := Resolve(
		Resolver{Name: "broken", Resolve: func() (Ref, error) { calls++; return "", errors.New("boom") }},
		Present("empty", ""),
		Present("second", "https://x/2.jpg"),
		Resolver{Name: "never", Resolve: func() (Ref, error) { calls++; return "https://x/3.jpg", nil }},
	)
	require.NoError(t, err)
	assert.Equal(t, Ref("https://x/2.jpg"), ref)
	assert.Equal(t, "second", via)
	assert.Equal(t, 1, calls)
}

func TestResolveAllFail(t *testing.T) {
	_, _, err := Resolve(Present("a", ""), Present("b", ""))
	assert.ErrorIs(t, err, ErrNoCandidate)

	_, _, err = Resolve()
	assert.ErrorIs(t, err, ErrNoCandidate)
}
