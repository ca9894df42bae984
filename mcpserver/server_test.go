package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"go.aimuz.me/clearsight/gateway"
	"go.aimuz.me/clearsight/internal/fake"
	"go.aimuz.me/clearsight/internal/types"
	"go.aimuz.me/clearsight/settings"
)

var jpegBytes = []byte{0xff, 0xd8, 0xff, 0xe0, 'j', 'f', 'i', 'f'}

func resultText(t *testing.T, res *sdk.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) != 1 {
		t.Fatalf("result = %+v, want one content item", res)
	}
	tc, ok := res.Content[0].(*sdk.TextContent)
	if !ok {
		t.Fatalf("content = %T, want text", res.Content[0])
	}
	return tc.Text
}

func TestSimplifyDefaultsFromSettings(t *testing.T) {
	type call struct {
		Text     string
		Level    types.ReadingLevel
		Language string
	}
	var got []call
	g := &fake.Gateway{Simplify: func(text string, level types.ReadingLevel, language string) string {
		got = append(got, call{text, level, language})
		return "easy"
	}}
	store := settings.NewStore(types.DefaultSettings())
	store.Update(settings.Patch{
		ReadingLevel: settings.Ptr(types.ReadingSimple),
		Language:     settings.Ptr("Spanish"),
	})
	s := New(g, Config{Settings: store})

	res, _, err := s.handleSimplify(context.Background(), nil, SimplifyArgs{Text: "hard"})
	if err != nil {
		t.Fatalf("handleSimplify() error = %v", err)
	}
	if text := resultText(t, res); text != "easy" {
		t.Errorf("text = %q", text)
	}
	if _, _, err := s.handleSimplify(context.Background(), nil, SimplifyArgs{
		Text: "hard", ReadingLevel: "advanced", Language: "auto",
	}); err != nil {
		t.Fatalf("handleSimplify() error = %v", err)
	}

	want := []call{
		{"hard", types.ReadingSimple, "Spanish"},
		{"hard", types.ReadingAdvanced, "auto"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestSimplifyRejectsBadArgs(t *testing.T) {
	g := &fake.Gateway{}
	s := New(g, Config{})
	tests := []struct {
		name string
		args SimplifyArgs
	}{
		{"blank text", SimplifyArgs{Text: "  "}},
		{"unknown level", SimplifyArgs{Text: "x", ReadingLevel: "expert"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := s.handleSimplify(context.Background(), nil, tt.args); err == nil {
				t.Error("handleSimplify() should fail")
			}
		})
	}
	if n := g.Calls(gateway.OpSimplify); n != 0 {
		t.Errorf("gateway calls = %d, want 0", n)
	}
}

func TestDescribeImageSources(t *testing.T) {
	var imgs [][]byte
	var langs []string
	g := &fake.Gateway{Describe: func(img []byte, language string) string {
		imgs = append(imgs, img)
		langs = append(langs, language)
		return "A red door."
	}}
	s := New(g, Config{})

	path := filepath.Join(t.TempDir(), "door.png")
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	for _, args := range []ImageArgs{
		{Image: base64.StdEncoding.EncodeToString(jpegBytes), Language: "German"},
		{Path: path},
	} {
		res, _, err := s.handleDescribe(context.Background(), nil, args)
		if err != nil {
			t.Fatalf("handleDescribe(%+v) error = %v", args, err)
		}
		if text := resultText(t, res); text != "A red door." {
			t.Errorf("text = %q", text)
		}
	}

	if !bytes.Equal(imgs[0], jpegBytes) {
		t.Error("jpeg input should pass through unchanged")
	}
	if !bytes.HasPrefix(imgs[1], []byte{0xff, 0xd8}) {
		t.Error("png input should be re-encoded as jpeg")
	}
	if diff := cmp.Diff([]string{"German", types.DefaultSettings().Language}, langs); diff != "" {
		t.Errorf("languages mismatch (-want +got):\n%s", diff)
	}
}

func TestImageArgsErrors(t *testing.T) {
	g := &fake.Gateway{}
	s := New(g, Config{})
	tests := []struct {
		name string
		args ImageArgs
	}{
		{"empty", ImageArgs{}},
		{"bad base64", ImageArgs{Image: "%%%"}},
		{"missing file", ImageArgs{Path: filepath.Join(t.TempDir(), "none.jpg")}},
		{"not an image", ImageArgs{Image: base64.StdEncoding.EncodeToString([]byte("hello"))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := s.handleSign(context.Background(), nil, tt.args); err == nil {
				t.Error("handleSign() should fail")
			}
		})
	}
	if n := g.Calls(gateway.OpSign); n != 0 {
		t.Errorf("gateway calls = %d, want 0", n)
	}
}

func TestToolsOverTransport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g := &fake.Gateway{Sign: func([]byte) string { return "Thank you" }}
	s := New(g, Config{Version: "test"})
	clientT, serverT := sdk.NewInMemoryTransports()
	go func() { _ = s.Run(ctx, serverT) }()

	client := sdk.NewClient(&sdk.Implementation{Name: "test", Version: "test"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer cs.Close()

	tools, err := cs.ListTools(ctx, &sdk.ListToolsParams{})
	if err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}
	var names []string
	descriptions := map[string]string{}
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
		descriptions[tool.Name] = tool.Description
	}
	slices.Sort(names)
	if diff := cmp.Diff([]string{"describe_image", "interpret_sign", "simplify_text"}, names); diff != "" {
		t.Errorf("tools mismatch (-want +got):\n%s", diff)
	}
	if d := descriptions["describe_image"]; !strings.Contains(d, "spatial layout, objects and text") {
		t.Errorf("describe_image description = %q", d)
	}

	res, err := cs.CallTool(ctx, &sdk.CallToolParams{
		Name:      "interpret_sign",
		Arguments: map[string]any{"image": base64.StdEncoding.EncodeToString(jpegBytes)},
	})
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	if text := resultText(t, res); text != "Thank you" {
		t.Errorf("text = %q", text)
	}

	res, err = cs.CallTool(ctx, &sdk.CallToolParams{Name: "interpret_sign", Arguments: map[string]any{}})
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	if !res.IsError {
		t.Error("missing image should be a tool error")
	}
}
