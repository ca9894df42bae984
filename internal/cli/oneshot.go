package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"go.aimuz.me/clearsight/capture"
	"go.aimuz.me/clearsight/clipboard"
	"go.aimuz.me/clearsight/internal/app"
	"go.aimuz.me/clearsight/internal/types"
	"go.aimuz.me/clearsight/ocr"
	"go.aimuz.me/clearsight/settings"
)

type simplifyOptions struct {
	Level     string
	Language  string
	Clipboard bool
	Image     string
}

func NewSimplifyCmd() *cobra.Command {
	options := simplifyOptions{}
	cmd := &cobra.Command{
		Use:   "simplify [file]",
		Short: "Rewrite a text file, or stdin, in plain words",
		Args:  cobra.MaximumNArgs(1),
		Example: `  clearsight simplify letter.txt --level simple
  clearsight simplify --image scan.png
  pbpaste | clearsight simplify --language Spanish`,
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := settings.Patch{}
			if options.Level != "" {
				level := types.ReadingLevel(options.Level)
				if !slices.Contains(types.ReadingLevels, level) {
					return fmt.Errorf("unknown reading level %q", options.Level)
				}
				patch.ReadingLevel = &level
			}
			if options.Language != "" {
				patch.Language = &options.Language
			}

			svc, stop, err := startService(cmd.Context(), app.Options{Devices: noDevices()})
			if err != nil {
				return err
			}
			defer stop()
			svc.Settings().Update(patch)

			nav := svc.Navigator()
			if err := nav.Enter(cmd.Context(), types.ModeText); err != nil {
				return err
			}
			text := nav.Text()
			switch {
			case options.Clipboard:
				in, err := clipboard.ReadText(cmd.Context())
				if err != nil {
					return err
				}
				text.SetInput(in)
			case options.Image != "":
				in, err := ocr.Tesseract{}.RecognizeText(cmd.Context(), options.Image)
				if err != nil {
					return err
				}
				text.SetInput(in)
			case len(args) == 1:
				if _, err := text.LoadFile(args[0]); err != nil {
					return err
				}
			default:
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text.SetInput(string(b))
			}

			out, err := text.Submit(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&options.Level, "level", "", "reading level: simple, moderate or advanced")
	cmd.Flags().StringVar(&options.Language, "language", "", "target language, or auto")
	cmd.Flags().BoolVar(&options.Clipboard, "clipboard", false, "read the text from the clipboard")
	cmd.Flags().StringVar(&options.Image, "image", "", "read the text from a photo of a document")
	cmd.MarkFlagsMutuallyExclusive("clipboard", "image")
	return cmd
}

func NewDescribeCmd() *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:   "describe [image]",
		Short: "Describe an image file, or a photo from the camera",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(args) == 1 {
				return oneImage(ctx, cmd.OutOrStdout(), args[0], func(svc *app.Service, img []byte) string {
					lang := language
					if lang == "" {
						lang = svc.Settings().Get().Language
					}
					return svc.Gateway().DescribeImage(ctx, img, lang)
				})
			}

			svc, stop, err := startService(ctx, app.Options{})
			if err != nil {
				return err
			}
			defer stop()
			if language != "" {
				svc.Settings().Update(settings.Patch{Language: &language})
			}

			nav := svc.Navigator()
			if err := nav.Enter(ctx, types.ModeImage); err != nil {
				return err
			}
			img := nav.Image()
			if err := img.Capture(ctx); err != nil {
				return err
			}
			snap := img.Snapshot()
			if snap.Result == nil {
				return errors.New("no description")
			}
			fmt.Fprintln(cmd.OutOrStdout(), snap.Result.Text)
			if err := img.WaitSpoken(ctx); err != nil {
				return fmt.Errorf("speak description: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&language, "language", "", "language of the description")
	return cmd
}

func NewSignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sign <image>",
		Short: "Translate the hand gesture in a photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return oneImage(ctx, cmd.OutOrStdout(), args[0], func(svc *app.Service, img []byte) string {
				return svc.Gateway().InterpretSign(ctx, img)
			})
		},
	}
}

func oneImage(ctx context.Context, w io.Writer, path string, ask func(*app.Service, []byte) string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	img, err := capture.ToJPEG(data)
	if err != nil {
		return err
	}
	svc, stop, err := startService(ctx, app.Options{Devices: noDevices()})
	if err != nil {
		return err
	}
	defer stop()
	fmt.Fprintln(w, ask(svc, img))
	return nil
}
