package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A 1x1 PNG.
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// shell runs commands the way separate invocations would: a fresh command
// tree each time, sharing only the database file and the filesystem.
type shell struct {
	t  *testing.T
	fs afero.Fs
}

func newShell(t *testing.T) *shell {
	t.Setenv("STORAGE_BACKEND", "sqlite")
	t.Setenv("DATABASE_DSN", filepath.Join(t.TempDir(), "ecofinds.db"))
	t.Setenv("UPLOAD_DIR", "/uploads")
	t.Setenv("SESSION_FILE", "/state/session")
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("LOG_LEVEL", "error")
	return &shell{t: t, fs: afero.NewMemMapFs()}
}

func (s *shell) run(args ...string) (string, error) {
	var out bytes.Buffer
	root, rt := newRoot(s.fs, &out)
	root.SetArgs(args)
	root.SetErr(&out)
	err := root.ExecuteContext(context.Background())
	require.NoError(s.t, rt.close())
	return out.String(), err
}

func (s *shell) ok(args ...string) string {
	s.t.Helper()
	out, err := s.run(args...)
	require.NoError(s.t, err, "ecofinds %v", args)
	return out
}

func TestMarketplaceSession(t *testing.T) {
	sh := newShell(t)
	require.NoError(t, afero.WriteFile(sh.fs, "/photos/lamp.png", pngBytes, 0o644))

	assert.Contains(t, sh.ok("whoami"), "Not signed in.")

	out := sh.ok("register", "--username", "seller", "--email", "seller@example.com", "--password", "secret1")
	assert.Contains(t, out, "Welcome, seller! You are signed in.")
	assert.Contains(t, sh.ok("whoami"), "seller <seller@example.com>")

	out = sh.ok("sell", "--json",
		"--name", "Lamp",
		"--description", "Brass desk lamp",
		"--price", "10",
		"--category", "Home Goods",
		"--image", "/photos/lamp.png")
	var lamp struct {
		ID     string   `json:"id"`
		Images []string `json:"images"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &lamp))
	require.NotEmpty(t, lamp.ID)
	require.Len(t, lamp.Images, 1)

	assert.Contains(t, sh.ok("products", "--mine"), "Lamp")

	out = sh.ok("products", "edit", lamp.ID, "--price", "12.5")
	assert.Contains(t, out, "$12.50")
	assert.Contains(t, out, "Brass desk lamp")

	_, err := sh.run("products", "edit", lamp.ID, "--category", "Spaceships")
	assert.Error(t, err)

	assert.Contains(t, sh.ok("logout"), "Signed out.")
	_, err = sh.run("cart")
	assert.ErrorContains(t, err, "not signed in")

	sh.ok("register", "--username", "buyer", "--email", "buyer@example.com", "--password", "secret2")

	out = sh.ok("products", "--search", "LAMP")
	assert.Contains(t, out, "Lamp")
	assert.Contains(t, out, "seller")
	assert.Contains(t, sh.ok("products", "--category", "Books"), "No products found.")

	_, err = sh.run("products", "delete", lamp.ID)
	assert.Error(t, err)

	out = sh.ok("cart", "add", lamp.ID, "-q", "2")
	assert.Contains(t, out, "Total: $25.00")

	out = sh.ok("checkout")
	assert.Contains(t, out, "Purchased 1 item(s) for $25.00.")
	assert.Contains(t, sh.ok("cart"), "Your cart is empty.")
	assert.Contains(t, sh.ok("checkout"), "Your cart is empty.")

	out = sh.ok("purchases")
	assert.Contains(t, out, "2 x Lamp @ $12.50")
	assert.Contains(t, out, "total $25.00")

	// The ledger keeps the price paid after the seller deletes the listing.
	sh.ok("logout")
	_, err = sh.run("login", "--email", "seller@example.com", "--password", "wrong")
	assert.ErrorContains(t, err, "invalid email or password")
	assert.Contains(t, sh.ok("login", "--email", "seller@example.com", "--password", "secret1"), "Signed in as seller.")
	assert.Contains(t, sh.ok("products", "delete", lamp.ID), "Deleted listing")

	sh.ok("logout")
	sh.ok("login", "--email", "buyer@example.com", "--password", "secret2")
	assert.Contains(t, sh.ok("purchases", "--grouped=false"), "Lamp")
}

func TestCartCommands(t *testing.T) {
	sh := newShell(t)
	require.NoError(t, afero.WriteFile(sh.fs, "/photos/item.png", pngBytes, 0o644))

	sh.ok("register", "--username", "seller", "--email", "seller@example.com", "--password", "secret1")
	var ids []string
	for _, name := range []string{"Chair", "Table"} {
		out := sh.ok("sell", "--json", "--name", name, "--description", "Solid wood", "--price", "20", "--category", "Furniture", "--image", "/photos/item.png")
		var p struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &p))
		ids = append(ids, p.ID)
	}
	sh.ok("logout")
	sh.ok("register", "--username", "buyer", "--email", "buyer@example.com", "--password", "secret2")

	sh.ok("cart", "add", ids[0])
	sh.ok("cart", "add", ids[1])

	var items []struct {
		ID       string `json:"id"`
		Quantity int    `json:"quantity"`
	}
	require.NoError(t, json.Unmarshal([]byte(sh.ok("cart", "--json")), &items))
	require.Len(t, items, 2)

	out := sh.ok("cart", "set", items[0].ID, "3")
	assert.Contains(t, out, "Total: $80.00")

	_, err := sh.run("cart", "set", items[0].ID, "many")
	assert.ErrorContains(t, err, "whole number")

	out = sh.ok("cart", "set", items[0].ID, "0")
	assert.Contains(t, out, "Total: $20.00")

	out = sh.ok("cart", "remove", items[1].ID)
	assert.Contains(t, out, "Your cart is empty.")

	sh.ok("cart", "add", ids[0])
	assert.Contains(t, sh.ok("cart", "clear"), "Your cart is empty.")
}

func TestProfileCommand(t *testing.T) {
	sh := newShell(t)
	require.NoError(t, afero.WriteFile(sh.fs, "/photos/me.png", pngBytes, 0o644))

	_, err := sh.run("profile")
	assert.ErrorContains(t, err, "not signed in")

	sh.ok("register", "--username", "alice", "--email", "alice@example.com", "--password", "secret1")

	out := sh.ok("profile", "--bio", "Vintage hunter", "--gender", "female", "--avatar", "/photos/me.png")
	assert.Contains(t, out, "bio:     Vintage hunter")
	assert.Contains(t, out, "gender:  female")
	assert.Contains(t, out, "avatar:  http://localhost:8080/uploads/")

	// Restored from the session file on the next invocation.
	out = sh.ok("profile")
	assert.Contains(t, out, "Vintage hunter")

	_, err = sh.run("profile", "--gender", "robot")
	assert.Error(t, err)
}

func TestSeedAndMigrate(t *testing.T) {
	sh := newShell(t)

	assert.Contains(t, sh.ok("migrate"), "Schema is up to date")
	assert.Contains(t, sh.ok("seed"), "Seeded 6 demo listings.")
	assert.Contains(t, sh.ok("seed"), "Demo listings already present.")
	assert.Contains(t, sh.ok("products"), "Vintage Leather Sofa")
	assert.Contains(t, sh.ok("products", "categories"), "Home Goods")

	_, err := sh.run("products", "show", "missing")
	assert.Error(t, err)
}
