// Package cli implements the pngdepth command.
package cli

import (
	"flag"
	"fmt"
	"image"
	imagepng "image/png"
	"io"
	"log"
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/tajtiattila/pngdepth"
	"github.com/tajtiattila/pngdepth/png"
	"github.com/tajtiattila/pngdepth/sign"
)

// Version is the version reported by the version command.
const Version = "0.3.0"

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

type env struct {
	stdout io.Writer
	stderr io.Writer
	log    *log.Logger
}

type command struct {
	usage string
	run   func(e *env, args []string) error
}

var commands = map[string]command{
	"chunks":  {"[-strict] file.png", cmdChunks},
	"meta":    {"[-strict] file.png", cmdMeta},
	"get":     {"-key keyword file.png", cmdGet},
	"set":     {"-key keyword -value text [-o out.png] file.png", cmdSet},
	"depth":   {"-in depth.png [-o out.png] file.png", cmdDepth},
	"extract": {"[-strict] -o depth.png file.png", cmdExtract},
	"sign":    {"-key private.pem [-o out.png] file.png", cmdSign},
	"verify":  {"-pub public.pem file.png", cmdVerify},
	"version": {"", cmdVersion},
}

// errUsage is returned by commands invoked with invalid arguments.
var errUsage = errors.New("usage")

// Run runs the command line args and returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	e := &env{
		stdout: stdout,
		stderr: stderr,
		log:    log.New(stderr, "pngdepth: ", 0),
	}

	if len(args) < 2 {
		usage(stderr)
		return exitUsage
	}
	cmd, ok := commands[args[1]]
	if !ok {
		e.log.Printf("unknown command %q", args[1])
		usage(stderr)
		return exitUsage
	}

	err := cmd.run(e, args[2:])
	switch {
	case err == nil:
		return exitOK
	case errors.Cause(err) == errUsage || errors.Cause(err) == flag.ErrHelp:
		fmt.Fprintf(stderr, "usage: pngdepth %s %s\n", args[1], cmd.usage)
		return exitUsage
	}
	e.log.Println(err)
	return exitFail
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "usage: pngdepth <command> [flags] file.png")
	fmt.Fprintln(w, "commands:")
	for _, n := range names {
		fmt.Fprintf(w, "  %-8s %s\n", n, commands[n].usage)
	}
}

// parse parses args with fs and returns the single file argument.
func parse(e *env, fs *flag.FlagSet, args []string) (string, error) {
	fs.SetOutput(e.stderr)
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		return "", errUsage
	}
	return fs.Arg(0), nil
}

func open(fn string, strict bool) (*pngdepth.Document, error) {
	d, err := pngdepth.Open(fn)
	if err != nil {
		return nil, err
	}
	d.Strict = strict
	return d, nil
}

// save writes d to out. An empty out replaces the input file,
// "-" writes to stdout.
func save(e *env, d *pngdepth.Document, out, in string) error {
	switch out {
	case "-":
		_, err := d.WriteTo(e.stdout)
		return err
	case "":
		out = in
	}
	return d.WriteFile(out)
}

func cmdChunks(e *env, args []string) error {
	fs := flag.NewFlagSet("chunks", flag.ContinueOnError)
	strict := fs.Bool("strict", false, "fail on crc mismatch")
	fn, err := parse(e, fs, args)
	if err != nil {
		return err
	}
	d, err := open(fn, *strict)
	if err != nil {
		return err
	}

	s, err := d.Chunks()
	if err != nil {
		return err
	}
	for s.Next() {
		c := s.Chunk()
		var bad string
		if !c.Valid() {
			bad = "  crc mismatch"
		}
		fmt.Fprintf(e.stdout, "%10d %s %10d %08x%s\n", c.Offset, c.Type, len(c.Data), c.CRC, bad)
	}
	return s.Err()
}

func cmdMeta(e *env, args []string) error {
	fs := flag.NewFlagSet("meta", flag.ContinueOnError)
	strict := fs.Bool("strict", false, "fail on crc mismatch")
	fn, err := parse(e, fs, args)
	if err != nil {
		return err
	}
	d, err := open(fn, *strict)
	if err != nil {
		return err
	}

	ms, err := d.Metadata()
	if err != nil {
		return err
	}
	for ms.Next() {
		t := ms.Text()
		fmt.Fprintf(e.stdout, "%s %s: %q\n", t.Type, t.Keyword, t.Text)
	}
	return ms.Err()
}

func cmdGet(e *env, args []string) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	key := fs.String("key", "", "tEXt keyword")
	fn, err := parse(e, fs, args)
	if err != nil {
		return err
	}
	if *key == "" {
		return errUsage
	}
	d, err := open(fn, false)
	if err != nil {
		return err
	}

	v, err := d.TextValue(*key)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, v)
	return nil
}

func cmdSet(e *env, args []string) error {
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	key := fs.String("key", "", "tEXt keyword")
	value := fs.String("value", "", "tEXt value")
	out := fs.String("o", "", "output file, - for stdout (default: replace input)")
	fn, err := parse(e, fs, args)
	if err != nil {
		return err
	}
	if *key == "" {
		return errUsage
	}
	d, err := open(fn, false)
	if err != nil {
		return err
	}

	if err := d.InsertText(*key, *value); err != nil {
		return err
	}
	return save(e, d, *out, fn)
}

func cmdDepth(e *env, args []string) error {
	fs := flag.NewFlagSet("depth", flag.ContinueOnError)
	in := fs.String("in", "", "depth image, converted to 8-bit gray")
	out := fs.String("o", "", "output file, - for stdout (default: replace input)")
	fn, err := parse(e, fs, args)
	if err != nil {
		return err
	}
	if *in == "" {
		return errUsage
	}

	m, err := readDepthImage(*in)
	if err != nil {
		return err
	}
	d, err := open(fn, false)
	if err != nil {
		return err
	}
	if err := d.InsertDepth(m); err != nil {
		return err
	}
	return save(e, d, *out, fn)
}

func readDepthImage(fn string) (*pngdepth.DepthMap, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrap(err, fn)
	}
	return pngdepth.DepthMapFromImage(img), nil
}

func cmdExtract(e *env, args []string) error {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	out := fs.String("o", "", "output grayscale png, - for stdout")
	strict := fs.Bool("strict", false, "fail on crc mismatch")
	fn, err := parse(e, fs, args)
	if err != nil {
		return err
	}
	if *out == "" {
		return errUsage
	}
	d, err := open(fn, *strict)
	if err != nil {
		return err
	}

	m, err := d.Depth()
	if err != nil {
		return err
	}

	if *out == "-" {
		return imagepng.Encode(e.stdout, m.Gray())
	}
	f, err := os.Create(*out)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := imagepng.Encode(f, m.Gray()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func cmdSign(e *env, args []string) error {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	keyFile := fs.String("key", "", "PEM encoded RSA private key")
	out := fs.String("o", "", "output file, - for stdout (default: replace input)")
	fn, err := parse(e, fs, args)
	if err != nil {
		return err
	}
	if *keyFile == "" {
		return errUsage
	}

	key, err := sign.LoadPrivateKey(*keyFile)
	if err != nil {
		return err
	}
	d, err := open(fn, true)
	if err != nil {
		return err
	}

	sig, err := sign.Sign(d, key)
	if err != nil {
		return err
	}
	if err := save(e, d, *out, fn); err != nil {
		return err
	}
	if *out != "-" {
		fmt.Fprintln(e.stdout, sig)
	}
	return nil
}

func cmdVerify(e *env, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	keyFile := fs.String("pub", "", "PEM encoded RSA public key")
	fn, err := parse(e, fs, args)
	if err != nil {
		return err
	}
	if *keyFile == "" {
		return errUsage
	}

	pub, err := sign.LoadPublicKey(*keyFile)
	if err != nil {
		return err
	}
	d, err := open(fn, true)
	if err != nil {
		return err
	}

	if err := sign.Verify(d, pub); err != nil {
		if errors.Cause(err) == png.ErrNotFound {
			return errors.Errorf("%s: not signed", fn)
		}
		return errors.WithMessage(err, fn)
	}
	fmt.Fprintf(e.stdout, "%s: signature ok\n", fn)
	return nil
}

func cmdVersion(e *env, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	fmt.Fprintf(e.stdout, "pngdepth %s\n", Version)
	return nil
}
