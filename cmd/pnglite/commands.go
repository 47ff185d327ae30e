package main

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/image/bmp"

	"pnglite"
)

func (f *codecFlags) decoder(log *zerolog.Logger) *pnglite.Decoder {
	d := pnglite.NewDecoder()
	d.MaxBufferSize = f.maxBuffer
	d.Logger = *log
	return d
}

func (f *codecFlags) encoder(log *zerolog.Logger) (*pnglite.Encoder, error) {
	e := pnglite.NewEncoder()
	e.Logger = *log
	e.IDATSize = f.idatSize

	switch strings.ToLower(f.level) {
	case "", "default":
		e.Level = pnglite.DefaultCompression
	case "none":
		e.Level = pnglite.NoCompression
	case "speed":
		e.Level = pnglite.BestSpeed
	case "best":
		e.Level = pnglite.BestCompression
	default:
		return nil, fmt.Errorf("unknown --level %q (want default, none, speed or best)", f.level)
	}

	switch strings.ToLower(f.filter) {
	case "", "none":
		e.Filter = pnglite.FilterNone
	case "adaptive":
		e.Filter = pnglite.FilterAdaptive
	default:
		return nil, fmt.Errorf("unknown --filter %q (want none or adaptive)", f.filter)
	}
	return e, nil
}

func decodeFile(d *pnglite.Decoder, path string) (*pnglite.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := d.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// createFile opens path for writing and hands a buffered writer to fn.
func createFile(path string, fn func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := fn(bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newInfoCommand(flags *codecFlags, log *zerolog.Logger) *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "info <file.png>...",
		Short: "Print the header of PNG files",
		Long:  "Print the header of PNG files. With --full the image is decoded and palette and transparency are reported too.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := flags.decoder(log)
			out := cmd.OutOrStdout()
			for _, path := range args {
				var m *pnglite.Image
				var err error
				if full {
					m, err = decodeFile(d, path)
				} else {
					m, err = headerOf(d, path)
				}
				if err != nil {
					return err
				}
				printInfo(out, path, m, full)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "decode the whole image")
	return cmd
}

func headerOf(d *pnglite.Decoder, path string) (*pnglite.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := d.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func printInfo(w io.Writer, path string, m *pnglite.Image, full bool) {
	fmt.Fprintf(w, "%s:\n", path)
	fmt.Fprintf(w, "\twidth:\t\t%d\n", m.Width)
	fmt.Fprintf(w, "\theight:\t\t%d\n", m.Height)
	fmt.Fprintf(w, "\tdepth:\t\t%d\n", m.Depth)
	fmt.Fprintf(w, "\tcolor:\t\t%s\n", m.ColorType)
	fmt.Fprintf(w, "\tstride:\t\t%d\n", m.Stride())
	fmt.Fprintf(w, "\tpitch:\t\t%d\n", m.Pitch())
	if !full {
		return
	}
	if m.ColorType == pnglite.Indexed {
		fmt.Fprintf(w, "\tpalette:\t%d entries\n", m.PaletteSize)
	}
	switch {
	case !m.Transparency:
		fmt.Fprintf(w, "\ttransparency:\tnone\n")
	case m.ColorType == pnglite.Indexed:
		if i, ok := m.TransparentIndex(); ok {
			fmt.Fprintf(w, "\ttransparency:\tindex %d\n", i)
		} else {
			fmt.Fprintf(w, "\ttransparency:\talpha table\n")
		}
	case m.ColorType == pnglite.Greyscale:
		fmt.Fprintf(w, "\ttransparency:\tkey %d\n", m.ColorKey[0])
	default:
		fmt.Fprintf(w, "\ttransparency:\tkey %d,%d,%d\n", m.ColorKey[0], m.ColorKey[1], m.ColorKey[2])
	}
}

func newCheckCommand(flags *codecFlags, log *zerolog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file.png>...",
		Short: "Decode PNG files and compare every pixel with image/png",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := flags.decoder(log)
			failed := 0
			for _, path := range args {
				err := checkFile(d, path)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "FAIL\t%s\t%v\n", path, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok\t%s\n", path)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(args))
			}
			return nil
		},
	}
}

func checkFile(d *pnglite.Decoder, path string) error {
	m, err := decodeFile(d, path)
	if err != nil {
		return err
	}
	got, err := toImage(m)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	want, err := png.Decode(f)
	if err != nil {
		return fmt.Errorf("image/png: %w", err)
	}
	return compareImages(got, want)
}

func compareImages(got, want image.Image) error {
	gb, wb := got.Bounds(), want.Bounds()
	if gb.Size() != wb.Size() {
		return fmt.Errorf("size %v, image/png reports %v", gb.Size(), wb.Size())
	}
	for y := 0; y < gb.Dy(); y++ {
		for x := 0; x < gb.Dx(); x++ {
			g := color.NRGBAModel.Convert(got.At(gb.Min.X+x, gb.Min.Y+y)).(color.NRGBA)
			w := color.NRGBAModel.Convert(want.At(wb.Min.X+x, wb.Min.Y+y)).(color.NRGBA)
			if g != w {
				return fmt.Errorf("pixel (%d,%d) is %v, image/png reports %v", x, y, g, w)
			}
		}
	}
	return nil
}

func newConvertCommand(flags *codecFlags, log *zerolog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "Convert between PNG and BMP, or re-encode a PNG",
		Long: "Convert between PNG and BMP, or re-encode a PNG. The formats are picked by file extension; " +
			"PNG output is always 8 bits per sample.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, out := args[0], args[1]
			src, err := loadImage(flags.decoder(log), in)
			if err != nil {
				return err
			}

			switch strings.ToLower(filepath.Ext(out)) {
			case ".bmp":
				img, err := toImage(src)
				if err != nil {
					return err
				}
				err = createFile(out, func(w io.Writer) error { return bmp.Encode(w, img) })
				if err != nil {
					return err
				}
			case ".png":
				e, err := flags.encoder(log)
				if err != nil {
					return err
				}
				m, err := toDepth8(src)
				if err != nil {
					return err
				}
				if err := createFile(out, func(w io.Writer) error { return e.Encode(w, m) }); err != nil {
					return err
				}
			default:
				return fmt.Errorf("%s: unknown output format", out)
			}
			log.Info().Str("in", in).Str("out", out).Msg("converted")
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.level, "level", "default", "compression level: default, none, speed or best")
	f.StringVar(&flags.filter, "filter", "none", "scanline filter policy: none or adaptive")
	f.IntVar(&flags.idatSize, "idat-size", 0, "largest IDAT payload in bytes (0 = single IDAT)")
	return cmd
}

// loadImage reads a PNG through pnglite or a BMP through x/image/bmp.
func loadImage(d *pnglite.Decoder, path string) (*pnglite.Image, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return decodeFile(d, path)
	case ".bmp":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		img, err := bmp.Decode(bufio.NewReader(f))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return fromImage(img), nil
	}
	return nil, fmt.Errorf("%s: unknown input format", path)
}

func newDumpCommand(flags *codecFlags, log *zerolog.Logger) *cobra.Command {
	var useZstd bool
	cmd := &cobra.Command{
		Use:   "dump <file.png> <out>",
		Short: "Write the decoded samples, one per byte, to a file",
		Long:  "Write the decoded samples, one per byte in row-major order, to a file. Use - for stdout.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := decodeFile(flags.decoder(log), args[0])
			if err != nil {
				return err
			}
			data := m.Pix
			if useZstd {
				data = compressSamples(data)
			}
			log.Debug().
				Int("samples", len(m.Pix)).
				Int("bytes", len(data)).
				Bool("zstd", useZstd).
				Msg("dump")

			if args[1] == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			return createFile(args[1], func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&useZstd, "zstd", false, "compress the dump with zstd")
	return cmd
}
