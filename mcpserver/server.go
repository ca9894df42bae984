// Package mcpserver exposes the AI gateway operations as MCP tools so that
// agents can simplify text and describe images on a user's behalf.
package mcpserver

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"go.aimuz.me/clearsight/capture"
	"go.aimuz.me/clearsight/internal/types"
	"go.aimuz.me/clearsight/settings"
)

// Gateway is the part of the AI gateway the tools use.
type Gateway interface {
	SimplifyText(ctx context.Context, text string, level types.ReadingLevel, language string) string
	DescribeImage(ctx context.Context, image []byte, language string) string
	InterpretSign(ctx context.Context, image []byte) string
}

// Config holds server settings.
type Config struct {
	Name    string
	Version string

	// Settings supplies the default reading level and language.
	Settings settings.Reader
}

// Server is an MCP server over a Gateway.
type Server struct {
	gw        Gateway
	cfg       Config
	mcpServer *sdk.Server
}

// New creates a Server with its tools registered.
func New(gw Gateway, cfg Config) *Server {
	if cfg.Name == "" {
		cfg.Name = "clearsight"
	}
	if cfg.Settings == nil {
		cfg.Settings = settings.NewStore(types.DefaultSettings())
	}
	s := &Server{gw: gw, cfg: cfg}
	s.mcpServer = sdk.NewServer(&sdk.Implementation{Name: cfg.Name, Version: cfg.Version}, nil)
	s.registerTools()
	return s
}

// Run serves on transport until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	slog.Info("mcp server running", "name", s.cfg.Name)
	return s.mcpServer.Run(ctx, transport)
}

// RunStdio serves on stdin and stdout.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.Run(ctx, &sdk.StdioTransport{})
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "simplify_text",
		Description: "Rewrite text for a reading level and translate it into a language",
	}, s.handleSimplify)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "describe_image",
		Description: "Describe a photo in detail for a visually impaired person: spatial layout, objects and text",
	}, s.handleDescribe)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "interpret_sign",
		Description: "Translate the hand gesture in a photo into text",
	}, s.handleSign)
}

// SimplifyArgs carries the text to rewrite and how to rewrite it.
type SimplifyArgs struct {
	Text         string `json:"text" jsonschema:"the text to simplify"`
	ReadingLevel string `json:"reading_level,omitempty" jsonschema:"simple, moderate or advanced"`
	Language     string `json:"language,omitempty" jsonschema:"target language name, or auto to keep the input language"`
}

// ImageArgs carries an image inline or by path.
type ImageArgs struct {
	Image    string `json:"image,omitempty" jsonschema:"base64 encoded image"`
	Path     string `json:"path,omitempty" jsonschema:"path of an image file, used when image is empty"`
	Language string `json:"language,omitempty" jsonschema:"language of the answer"`
}

func (s *Server) handleSimplify(ctx context.Context, _ *sdk.CallToolRequest, args SimplifyArgs) (*sdk.CallToolResult, any, error) {
	if strings.TrimSpace(args.Text) == "" {
		return nil, nil, errors.New("text is required")
	}
	prefs := s.cfg.Settings.Get()
	level := prefs.ReadingLevel
	if args.ReadingLevel != "" {
		level = types.ReadingLevel(args.ReadingLevel)
		if !slices.Contains(types.ReadingLevels, level) {
			return nil, nil, fmt.Errorf("unknown reading level: %q", args.ReadingLevel)
		}
	}
	language := prefs.Language
	if args.Language != "" {
		language = args.Language
	}
	return textResult(s.gw.SimplifyText(ctx, args.Text, level, language)), nil, nil
}

func (s *Server) handleDescribe(ctx context.Context, _ *sdk.CallToolRequest, args ImageArgs) (*sdk.CallToolResult, any, error) {
	img, err := loadImage(args)
	if err != nil {
		return nil, nil, err
	}
	language := args.Language
	if language == "" {
		language = s.cfg.Settings.Get().Language
	}
	return textResult(s.gw.DescribeImage(ctx, img, language)), nil, nil
}

func (s *Server) handleSign(ctx context.Context, _ *sdk.CallToolRequest, args ImageArgs) (*sdk.CallToolResult, any, error) {
	img, err := loadImage(args)
	if err != nil {
		return nil, nil, err
	}
	return textResult(s.gw.InterpretSign(ctx, img)), nil, nil
}

func loadImage(args ImageArgs) ([]byte, error) {
	var data []byte
	switch {
	case args.Image != "":
		b, err := base64.StdEncoding.DecodeString(args.Image)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 image: %w", err)
		}
		data = b
	case args.Path != "":
		b, err := os.ReadFile(args.Path)
		if err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
		data = b
	default:
		return nil, errors.New("image or path is required")
	}
	jpg, err := capture.ToJPEG(data)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return jpg, nil
}

func textResult(text string) *sdk.CallToolResult {
	return &sdk.CallToolResult{Content: []sdk.Content{&sdk.TextContent{Text: text}}}
}
