package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParsesLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, New("debug").GetLevel())
	assert.Equal(t, logrus.WarnLevel, New(" warn ").GetLevel())
	assert.Equal(t, logrus.InfoLevel, New("loud").GetLevel())
	assert.Equal(t, logrus.InfoLevel, New("").GetLevel())
}

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput("info", &buf)
	logger.WithField("invoiceId", "inv-1").Info("invoice_created")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "invoice_created", entry["msg"])
	assert.Equal(t, "inv-1", entry["invoiceId"])
}
