package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestDeterminism(t *testing.T) {
	build := func() *Program {
		p := NewProgram()
		s := NewSub("Main")
		s.Append(NewOp(1).AddParam(NewValueParam(Int(7))))
		require.NoError(t, p.AddSub(s))
		return p
	}

	d1, err := Digest(build())
	require.NoError(t, err)
	d2, err := Digest(build())
	require.NoError(t, err)

	assert.Equal(t, d1, d2, "Digest must be deterministic")
	assert.Len(t, d1, 64, "SHA-256 hex is 64 characters")
}

func TestDigestChangesWithContent(t *testing.T) {
	p1 := NewProgram()
	require.NoError(t, p1.AddSub(NewSub("A")))
	p2 := NewProgram()
	require.NoError(t, p2.AddSub(NewSub("B")))

	d1, err := Digest(p1)
	require.NoError(t, err)
	d2, err := Digest(p2)
	require.NoError(t, err)
	assert.NotEqual(t, d1, d2)
}

func TestBlobDigestDomainSeparated(t *testing.T) {
	data := []byte("SCPT")
	assert.Equal(t, BlobDigest(data), BlobDigest(data))
	assert.NotEqual(t, hashWithDomain(DomainProgram, data), BlobDigest(data))
}
