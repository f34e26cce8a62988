package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
	"github.com/ethereum-tag-service/ets-server/internal/tagging"
)

const testPlatform = "0x00000000000000000000000000000000000000f0"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestTagIDCmd(t *testing.T) {
	out, err := run(t, "tag-id", "#Love", "nohash")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "#love\t"+tagging.ComputeTagID("#love").String(), lines[0])
	assert.Contains(t, lines[1], "invalid")
}

func TestTargetIDCmd(t *testing.T) {
	out, err := run(t, "target-id", "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, tagging.ComputeTargetID("https://example.com").String(), strings.TrimSpace(out))
}

func TestRecordIDCmd(t *testing.T) {
	relayer := "0x00000000000000000000000000000000000000a1"
	tagger := "0x0000000000000000000000000000000000000001"

	out, err := run(t, "record-id",
		"--target-uri", "https://example.com",
		"--record-type", "bookmark",
		"--relayer", relayer,
		"--tagger", tagger,
	)
	require.NoError(t, err)

	r, _ := domain.ParseAddress(relayer)
	tg, _ := domain.ParseAddress(tagger)
	want := tagging.ComputeRecordID(tagging.ComputeTargetID("https://example.com"), "bookmark", r, tg)
	assert.Equal(t, want.String(), strings.TrimSpace(out))

	// By target id gives the same record.
	out, err = run(t, "record-id",
		"--target-id", tagging.ComputeTargetID("https://example.com").String(),
		"--record-type", "bookmark",
		"--relayer", relayer,
		"--tagger", tagger,
	)
	require.NoError(t, err)
	assert.Equal(t, want.String(), strings.TrimSpace(out))

	_, err = run(t, "record-id", "--relayer", relayer, "--tagger", tagger)
	assert.Error(t, err, "target is required")

	_, err = run(t, "record-id", "--target-uri", "x", "--relayer", "nope", "--tagger", tagger)
	assert.Error(t, err)
}

func TestFeeCmd(t *testing.T) {
	out, err := run(t, "fee", "--per-tag-fee", "1000", "--existing", "#aa", "#aa", "#bb", "#cc")
	require.NoError(t, err)

	assert.Contains(t, out, "new tags:      2")
	assert.Contains(t, out, "fee (wei):     2000")
	assert.Regexp(t, `platform\s+200\n`, out)
	assert.Regexp(t, `relayer\s+300\n`, out)
	assert.Regexp(t, `creator\s+500\n`, out)
}

func TestFeeCmd_Remove(t *testing.T) {
	out, err := run(t, "fee", "--action", "remove", "--per-tag-fee", "1000", "--existing", "#aa", "#aa")
	require.NoError(t, err)
	assert.Contains(t, out, "new tags:      1")
	assert.Contains(t, out, "fee (wei):     0")
	assert.NotContains(t, out, "platform")
}

func TestFeeCmd_BadInput(t *testing.T) {
	_, err := run(t, "fee", "--action", "burn", "#aa")
	assert.Error(t, err)

	_, err = run(t, "fee", "--per-tag-fee", "-5", "#aa")
	assert.Error(t, err)
}

func TestProtocolCheckCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "protocol.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tagging_fee: \"5000\"\nrelayer_percentage: 25\n"), 0o600))

	out, err := run(t, "protocol", "check", path, "--platform-address", testPlatform)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, "5000", got["tagging_fee"])
	assert.Equal(t, 25, got["relayer_percentage"])
	assert.Equal(t, 20, got["platform_percentage"])
	assert.Equal(t, testPlatform, got["platform_address"])
}

func TestProtocolCheckCmd_Rejects(t *testing.T) {
	dir := t.TempDir()

	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("taging_fee: \"1\"\n"), 0o600))
	_, err := run(t, "protocol", "check", unknown, "--platform-address", testPlatform)
	assert.Error(t, err)

	over := filepath.Join(dir, "over.yaml")
	require.NoError(t, os.WriteFile(over, []byte("platform_percentage: 80\nrelayer_percentage: 30\n"), 0o600))
	_, err = run(t, "protocol", "check", over, "--platform-address", testPlatform)
	assert.Error(t, err)

	// No platform anywhere.
	ok := filepath.Join(dir, "ok.yaml")
	require.NoError(t, os.WriteFile(ok, []byte("tagging_fee: \"1\"\n"), 0o600))
	_, err = run(t, "protocol", "check", ok)
	assert.Error(t, err)
}

func TestSeedAndInspect(t *testing.T) {
	db := filepath.Join(t.TempDir(), "db")

	out, err := run(t, "seed", "--db", db, "--platform-address", testPlatform, "--records", "3", "--fee", "1000")
	require.NoError(t, err)
	assert.Contains(t, out, "Registered relayer")
	assert.Contains(t, out, "Applied 3 tagging records")

	// Seeding again reuses the admin and relayer.
	out, err = run(t, "seed", "--db", db, "--platform-address", testPlatform, "--records", "2", "--fee", "1000")
	require.NoError(t, err)
	assert.Contains(t, out, "already registered")

	out, err = run(t, "inspect", "--db", db)
	require.NoError(t, err)
	assert.Regexp(t, `account:\s+2\n`, out)
	assert.Regexp(t, `relayer:\s+1\n`, out)
	assert.Regexp(t, `target:\s+5\n`, out)
	assert.Regexp(t, `record:\s+5\n`, out)
	assert.Contains(t, out, "=== Tags ===")
}

func TestReindexCmd(t *testing.T) {
	data := t.TempDir()
	db := filepath.Join(data, "db")

	_, err := run(t, "seed", "--db", db, "--platform-address", testPlatform, "--records", "2", "--fee", "1000")
	require.NoError(t, err)

	out, err := run(t, "reindex", "--data", data)
	require.NoError(t, err)
	assert.Regexp(t, `Indexed [1-9]\d* tags`, out)

	// A second run drops the existing index before walking the store again.
	again, err := run(t, "reindex", "--data", data)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}
