// Command facet inspects, queries and edits polygon meshes. It loads OBJ,
// STL and binary half-edge files, answers containment and closest-point
// queries through an AABB tree, and runs mesh scripts in a sandboxed Lisp.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chazu/facet/pkg/dcel"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version is the facet release.
const Version = "0.3.0"

// Cfg holds configuration information.
var Cfg *viper.Viper

type option struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

var options []option

func init() {
	defaults := DefaultConfig()
	options = []option{
		{
			name:       "config",
			usage:      "config specifies the TOML configuration file location.",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name:       "log-level",
			usage:      "log-level is one of panic, fatal, error, warn, info, debug or trace.",
			defaultVal: defaults.LogLevel,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name:       "checks",
			usage:      "checks is the odd number of rays cast per inside query.",
			shorthand:  "n",
			defaultVal: defaults.Checks,
			flagsets:   []*pflag.FlagSet{insideCmd.Flags(), evalCmd.Flags()},
		},
		{
			name:       "for-distance",
			usage:      "for-distance builds the spatial index with nearest-point acceleration.",
			defaultVal: defaults.ForDistance,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name:       "weld-tolerance",
			usage:      "weld-tolerance merges STL corners closer than this distance.",
			defaultVal: defaults.WeldTolerance,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name:       "eval-timeout",
			usage:      "eval-timeout is the hard limit for one script evaluation.",
			defaultVal: defaults.EvalTimeout.String(),
			flagsets:   []*pflag.FlagSet{evalCmd.Flags()},
		},
		{
			name:       "out",
			usage:      "out is the file the resulting mesh is written to (.obj, .stl or .dcel).",
			shorthand:  "o",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{flipCmd.Flags(), evalCmd.Flags(), boxCmd.Flags()},
		},
		{
			name:       "mesh",
			usage:      "mesh is the file a script starts from; scripts start empty without it.",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{evalCmd.Flags()},
		},
		{
			name:       "size",
			usage:      "size is the edge length of the box.",
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{boxCmd.Flags()},
		},
		{
			name:       "quads",
			usage:      "quads keeps the six box faces as quadrilaterals.",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{boxCmd.Flags()},
		},
		{
			name:       "smooth",
			usage:      "smooth tessellates the box with marching cubes.",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{boxCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("FACET")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	Cfg.AutomaticEnv()

	for _, o := range options {
		for i, set := range o.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(o.flagsets[0].Lookup(o.name))
				continue
			}
			switch v := o.defaultVal.(type) {
			case string:
				set.StringP(o.name, o.shorthand, v, o.usage)
			case bool:
				set.BoolP(o.name, o.shorthand, v, o.usage)
			case int:
				set.IntP(o.name, o.shorthand, v, o.usage)
			case float64:
				set.Float64P(o.name, o.shorthand, v, o.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(o.name, set.Lookup(o.name))
		}
	}

	Root.AddCommand(versionCmd, infoCmd, insideCmd, nearestCmd, convertCmd, flipCmd, evalCmd, boxCmd)
}

// setConfig reads the configuration file, if there is one, beneath the
// environment and flags.
func setConfig() error {
	path := Cfg.GetString("config")
	if path == "" {
		return nil
	}
	file, err := LoadConfig(path)
	if err != nil {
		return err
	}
	Cfg.SetDefault("log-level", file.LogLevel)
	Cfg.SetDefault("checks", file.Checks)
	Cfg.SetDefault("for-distance", file.ForDistance)
	Cfg.SetDefault("weld-tolerance", file.WeldTolerance)
	Cfg.SetDefault("eval-timeout", file.EvalTimeout.String())
	return nil
}

// currentConfig assembles the effective configuration.
func currentConfig() (Config, error) {
	timeout, err := time.ParseDuration(Cfg.GetString("eval-timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("facet: eval-timeout: %w", err)
	}
	cfg := Config{
		LogLevel:      Cfg.GetString("log-level"),
		Checks:        Cfg.GetInt("checks"),
		ForDistance:   Cfg.GetBool("for-distance"),
		WeldTolerance: Cfg.GetFloat64("weld-tolerance"),
		EvalTimeout:   duration{timeout},
	}
	return cfg, cfg.Validate()
}

// newApp builds the App for a command, logging to the command's error
// stream.
func newApp(cmd *cobra.Command) (*App, error) {
	cfg, err := currentConfig()
	if err != nil {
		return nil, err
	}
	log := cfg.NewLogger()
	log.SetOutput(cmd.ErrOrStderr())
	return NewApp(cfg, log), nil
}

// parsePoint reads three coordinates.
func parsePoint(args []string) (v3.Vec, error) {
	if len(args) != 3 {
		return v3.Vec{}, fmt.Errorf("facet: a point needs 3 coordinates, got %d", len(args))
	}
	var c [3]float64
	for i, a := range args {
		f, err := cast.ToFloat64E(a)
		if err != nil {
			return v3.Vec{}, fmt.Errorf("facet: coordinate %q: %w", a, err)
		}
		c[i] = f
	}
	return v3.Vec{X: c[0], Y: c[1], Z: c[2]}, nil
}

// save writes m to the --out file when one is given.
func save(app *App, m *dcel.Mesh) error {
	if out := Cfg.GetString("out"); out != "" {
		return app.Save(out, m)
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "facet",
	Short: "Inspect, query and edit polygon meshes.",
	Long: `facet loads OBJ, STL and binary half-edge (.dcel) meshes, answers
containment and closest-point queries through an AABB tree, and runs mesh
scripts in a sandboxed Lisp.

Configuration can be changed by using a TOML configuration file (and providing
the path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'FACET_var' where 'var' is
the name of the flag with dashes replaced by underscores.`,
	SilenceUsage:      true,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("facet v%s\n", Version)
	},
	DisableAutoGenTag: true,
}

var infoCmd = &cobra.Command{
	Use:   "info MESH",
	Short: "Print the size, topology and extent of a mesh.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		m, err := app.Load(args[0])
		if err != nil {
			return err
		}
		info := app.Info(m)
		cmd.Printf("vertices:   %d\n", info.Vertices)
		cmd.Printf("half-edges: %d\n", info.HalfEdges)
		cmd.Printf("faces:      %d\n", info.Faces)
		cmd.Printf("triangles:  %d\n", info.Triangles)
		cmd.Printf("closed:     %v\n", info.Closed)
		cmd.Printf("manifold:   %v\n", info.Manifold)
		cmd.Printf("area:       %g\n", info.Area)
		if info.Box.IsValid() {
			cmd.Printf("box:        %v %v\n", info.Box.Min, info.Box.Max)
		}
		cmd.Printf("center:     %v\n", info.SceneCenter)
		cmd.Printf("radius:     %g\n", info.SceneRadius)
		for _, p := range info.Problems {
			cmd.Printf("problem:    %s\n", p)
		}
		return nil
	},
	DisableAutoGenTag: true,
}

var insideCmd = &cobra.Command{
	Use:   "inside MESH X Y Z [X Y Z...]",
	Short: "Report whether points lie inside a closed mesh.",
	Args:  cobra.MinimumNArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		coords := args[1:]
		if len(coords)%3 != 0 {
			return fmt.Errorf("facet: inside: coordinates must come in threes, got %d", len(coords))
		}
		var pts []v3.Vec
		for i := 0; i < len(coords); i += 3 {
			p, err := parsePoint(coords[i : i+3])
			if err != nil {
				return err
			}
			pts = append(pts, p)
		}
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		m, err := app.Load(args[0])
		if err != nil {
			return err
		}
		in, err := app.Inside(m, pts)
		if err != nil {
			return err
		}
		for i, p := range pts {
			where := "outside"
			if in[i] {
				where = "inside"
			}
			cmd.Printf("%g %g %g %s\n", p.X, p.Y, p.Z, where)
		}
		return nil
	},
	DisableAutoGenTag: true,
}

var nearestCmd = &cobra.Command{
	Use:   "nearest MESH X Y Z",
	Short: "Find the surface point, face and vertex nearest to a point.",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := parsePoint(args[1:])
		if err != nil {
			return err
		}
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		m, err := app.Load(args[0])
		if err != nil {
			return err
		}
		n, err := app.Nearest(m, p)
		if err != nil {
			return err
		}
		cmd.Printf("point:    %g %g %g\n", n.Point.X, n.Point.Y, n.Point.Z)
		cmd.Printf("distance: %g\n", n.Distance)
		cmd.Printf("face:     %d\n", n.Face)
		cmd.Printf("vertex:   %d\n", n.Vertex)
		return nil
	},
	DisableAutoGenTag: true,
}

var convertCmd = &cobra.Command{
	Use:   "convert IN OUT",
	Short: "Convert a mesh between OBJ, STL and .dcel.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		m, err := app.Load(args[0])
		if err != nil {
			return err
		}
		return app.Save(args[1], m)
	},
	DisableAutoGenTag: true,
}

var flipCmd = &cobra.Command{
	Use:   "flip MESH U W",
	Short: "Flip the edge between two vertices of a triangle mesh.",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := cast.ToIntE(args[1])
		if err != nil {
			return fmt.Errorf("facet: flip: vertex %q: %w", args[1], err)
		}
		w, err := cast.ToIntE(args[2])
		if err != nil {
			return fmt.Errorf("facet: flip: vertex %q: %w", args[2], err)
		}
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		m, err := app.Load(args[0])
		if err != nil {
			return err
		}
		if err := app.Flip(m, dcel.VertexID(u), dcel.VertexID(w)); err != nil {
			return err
		}
		cmd.Printf("flipped %d-%d\n", u, w)
		return save(app, m)
	},
	DisableAutoGenTag: true,
}

var evalCmd = &cobra.Command{
	Use:   "eval SCRIPT",
	Short: "Run a mesh script.",
	Long: `eval runs a Lisp script that builds, edits and queries a mesh. The
script starts from the --mesh file when one is given and from an empty mesh
otherwise. The value of the last expression is printed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("facet: eval: %w", err)
		}
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		var base *dcel.Mesh
		if path := Cfg.GetString("mesh"); path != "" {
			if base, err = app.Load(path); err != nil {
				return err
			}
		}
		res, err := app.Evaluate(base, string(src))
		if err != nil {
			return err
		}
		if len(res.Errors) > 0 {
			for _, e := range res.Errors {
				cmd.PrintErrf("%s: %s\n", args[0], e)
			}
			return fmt.Errorf("facet: eval: %s failed with %d error(s)", args[0], len(res.Errors))
		}
		cmd.Println(res.Value)
		return save(app, res.Mesh)
	},
	DisableAutoGenTag: true,
}

var boxCmd = &cobra.Command{
	Use:   "box [X Y Z]",
	Short: "Create a box mesh centered on a point.",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 3 {
			return fmt.Errorf("facet: box: expected no center or 3 coordinates, got %d", len(args))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		var c v3.Vec
		if len(args) == 3 {
			var err error
			if c, err = parsePoint(args); err != nil {
				return err
			}
		}
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		s := Cfg.GetFloat64("size")
		m, err := app.Box(c, v3.Vec{X: s, Y: s, Z: s}, Cfg.GetBool("quads"), Cfg.GetBool("smooth"))
		if err != nil {
			return err
		}
		cmd.Printf("box: %d vertices, %d faces\n", m.NumVertices(), m.NumFaces())
		return save(app, m)
	},
	DisableAutoGenTag: true,
}

func main() {
	if err := Root.Execute(); err != nil {
		logrus.Exit(1)
	}
}
