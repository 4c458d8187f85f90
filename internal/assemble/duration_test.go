package assemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPretty(t *testing.T) {
	cases := map[int64]string{
		0:              "0s",
		850:            "850ns",
		1_500:          "1.5µs",
		1_003_400:      "1.003ms",
		-2_000_000:     "-2ms",
		3_000_000_000:  "3s",
		61_500_000_000: "1m1.5s",
	}
	for ns, want := range cases {
		assert.Equal(t, want, Pretty(ns), "ns=%d", ns)
	}
}

func TestDuration_Sub(t *testing.T) {
	created := NewDuration(1_000)
	destroyed := NewDuration(2_001_000)

	alive := destroyed.Sub(created)
	assert.True(t, alive.Valid)
	assert.Equal(t, int64(2_000_000), alive.NS)
	assert.Equal(t, "2ms", alive.Pretty)

	missing := destroyed.Sub(UnavailableDuration())
	assert.False(t, missing.Valid)
	assert.Equal(t, Unavailable, missing.Pretty)
}
