package elog

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestCLIIsDebugEnabledReflectsIsDebug(t *testing.T) {
	l := &CLI{}
	assert.False(t, l.IsDebugEnabled())
	l.IsDebug = true
	assert.True(t, l.IsDebugEnabled())
}

func TestCLINewProgressDisablesTTYReturnsNilProgress(t *testing.T) {
	l := &CLI{DisableTTY: true}
	p := l.NewProgress("stage", 10)
	_, ok := p.(*nilProgress)
	assert.True(t, ok)

	// nilProgress discards Increment/Finish without panicking.
	p.Increment(5)
	p.Finish(true)
}

func TestCLIFormatAppendsNewlineWithoutColor(t *testing.T) {
	l := &CLI{DisableColors: true}
	out, err := l.Format(&logrus.Entry{Message: "hello", Level: logrus.InfoLevel})
	assert.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))
}

func TestCLIFormatColorsByLevel(t *testing.T) {
	l := &CLI{}
	out, err := l.Format(&logrus.Entry{Message: "oops", Level: logrus.ErrorLevel})
	assert.NoError(t, err)
	assert.Contains(t, string(out), "oops")
}

func TestViewInterfaceSatisfiedByCLI(t *testing.T) {
	var v View = &CLI{}
	assert.NotNil(t, v)
}
