package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPopupStack(t *testing.T) {
	s := NewPopupStack()
	assert.True(t, s.IsEmpty())
	assert.Equal(t, Dialog(""), s.Pop())

	s.Push(DialogSettings)
	s.Push(DialogHelp)
	s.Push(DialogSettings)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, DialogSettings, s.Top())

	s.Remove(DialogHelp)
	assert.False(t, s.Has(DialogHelp))
	assert.Equal(t, DialogSettings, s.Pop())
	assert.True(t, s.IsEmpty())
}
