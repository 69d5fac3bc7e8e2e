package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinks(t *testing.T) {
	assert.Equal(t, "[Catan](https://x/13)", Link("Catan", "https://x/13"))
	assert.Equal(t, "[**Catan**](https://x/13)", BoldLink("Catan", "https://x/13"))
}

func TestTableCell(t *testing.T) {
	assert.Equal(t, "a&#124;b c", TableCell("a|b\nc"))
}

func TestJoinNonEmpty(t *testing.T) {
	assert.Equal(t, "a; c", JoinNonEmpty("; ", "a", " ", "c"))
	assert.Equal(t, "", JoinNonEmpty("; "))
}

func TestStripLeadingHeader(t *testing.T) {
	header := "*^(r2d8 bleeps)*\n\n"
	assert.Equal(t, "body", StripLeadingHeader("*^(r2d8 bleeps)*\n\nbody", header))
	assert.Equal(t, "body", StripLeadingHeader("*^(r2d8 bleeps)*\r\n\r\nbody", header))
	assert.Equal(t, "other body", StripLeadingHeader("other body", header))
}
