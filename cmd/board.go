package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sandwich-alignment/alignment/internal/board"
	"github.com/sandwich-alignment/alignment/internal/catalog"
	"github.com/sandwich-alignment/alignment/internal/config"
	"github.com/sandwich-alignment/alignment/internal/models"
)

// boardState loads a board snapshot and the catalog for one command and
// writes the snapshot back after a change
type boardState struct {
	path      string
	catalogAt string
}

func (s *boardState) open(ctx context.Context) (*board.Session, *catalog.Catalog, error) {
	location := s.catalogAt
	if location == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, nil, err
		}
		location = cfg.CatalogPath
	}
	cat, err := loadCatalog(ctx, location)
	if err != nil {
		return nil, nil, err
	}

	b, err := board.LoadFile(s.path)
	if err != nil {
		return nil, nil, err
	}
	return board.ResumeSession(cat, b), cat, nil
}

func (s *boardState) save(session *board.Session) error {
	if err := session.Board().SaveFile(s.path); err != nil {
		return err
	}
	slog.Debug("Board saved", "path", s.path, "placements", session.Board().Size())
	return nil
}

// mutate opens the board, applies fn and saves it
func (s *boardState) mutate(cmd *cobra.Command, fn func(*board.Session, *catalog.Catalog) error) error {
	session, cat, err := s.open(cmd.Context())
	if err != nil {
		return err
	}
	if err := fn(session, cat); err != nil {
		return err
	}
	if err := s.save(session); err != nil {
		return err
	}
	printBoard(cmd.OutOrStdout(), session, cat)
	return nil
}

func newBoardCmd() *cobra.Command {
	state := &boardState{}

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Edit a board saved in a local state file",
		Long: `Edits a single board stored as a JSON snapshot. Every subcommand loads the
snapshot (a missing file is an empty board), applies the change and saves it.

Coordinates are in [-1, 1]: negative x is toward the left label, positive y
toward the bottom label. Put "--" before negative numbers.`,
		Example: `  alignment board --state my-board.json add blt 0.8 -- -0.9
  alignment board --state my-board.json drop hot-dog 420 80 --viewport 0,0,500,500
  alignment board --state my-board.json labels --left Soft --right Crunchy
  alignment board --state my-board.json submit --note "tacos count" --db alignment.db`,
	}

	cmd.PersistentFlags().StringVar(&state.path, "state", "board.json", "Board snapshot file")
	cmd.PersistentFlags().StringVar(&state.catalogAt, "catalog", "", "Catalog file or URL (defaults to CATALOG_PATH)")

	cmd.AddCommand(
		newBoardShowCmd(state),
		newBoardAddCmd(state),
		newBoardMoveCmd(state),
		newBoardRemoveCmd(state),
		newBoardClearCmd(state),
		newBoardDropCmd(state),
		newBoardLabelsCmd(state),
		newBoardDescribeCmd(state),
		newBoardSubmitCmd(state),
	)
	return cmd
}

func newBoardShowCmd(state *boardState) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, cat, err := state.open(cmd.Context())
			if err != nil {
				return err
			}
			printBoard(cmd.OutOrStdout(), session, cat)
			return nil
		},
	}
}

func newBoardAddCmd(state *boardState) *cobra.Command {
	return &cobra.Command{
		Use:   "add <id> <x> <y>",
		Short: "Place a sandwich that is not on the board yet",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, y, err := parseCoordinates(args[1], args[2])
			if err != nil {
				return err
			}
			return state.mutate(cmd, func(s *board.Session, cat *catalog.Catalog) error {
				if _, ok := cat.Get(args[0]); !ok {
					return fmt.Errorf("%w: %s", board.ErrUnknownItem, args[0])
				}
				return s.Board().Add(args[0], x, y)
			})
		},
	}
}

func newBoardMoveCmd(state *boardState) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <x> <y>",
		Short: "Move a placed sandwich",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, y, err := parseCoordinates(args[1], args[2])
			if err != nil {
				return err
			}
			return state.mutate(cmd, func(s *board.Session, _ *catalog.Catalog) error {
				return s.Board().Move(args[0], x, y)
			})
		},
	}
}

func newBoardRemoveCmd(state *boardState) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Take a sandwich off the board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.mutate(cmd, func(s *board.Session, _ *catalog.Catalog) error {
				return s.Remove(args[0])
			})
		},
	}
}

func newBoardClearCmd(state *boardState) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every sandwich, keeping the axis labels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.mutate(cmd, func(s *board.Session, _ *catalog.Catalog) error {
				s.ClearAll()
				return nil
			})
		},
	}
}

func newBoardDropCmd(state *boardState) *cobra.Command {
	var viewport string

	cmd := &cobra.Command{
		Use:   "drop <id> <pointerX> <pointerY>",
		Short: "Drop a sandwich at a pointer position inside a viewport",
		Long: `Resolves a drag-and-drop the way the web board does: the pointer position is
mapped through the viewport rectangle, a sandwich not on the board is added,
a placed one is moved, and a drop outside the viewport changes nothing.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseViewport(viewport)
			if err != nil {
				return err
			}
			px, py, err := parsePair(args[1], args[2])
			if err != nil {
				return err
			}
			return state.mutate(cmd, func(s *board.Session, _ *catalog.Catalog) error {
				result, err := s.Drop(args[0], v, px, py)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], result)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&viewport, "viewport", "0,0,100,100", "Board rectangle as left,top,width,height")
	return cmd
}

func newBoardLabelsCmd(state *boardState) *cobra.Command {
	var (
		labels models.AxisLabels
		reset  bool
	)

	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Rename the axis labels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.mutate(cmd, func(s *board.Session, _ *catalog.Catalog) error {
				b := s.Board()
				if reset {
					b.ResetAxisLabels()
					return nil
				}
				current := b.AxisLabels()
				if labels.Top != "" {
					current.Top = labels.Top
				}
				if labels.Bottom != "" {
					current.Bottom = labels.Bottom
				}
				if labels.Left != "" {
					current.Left = labels.Left
				}
				if labels.Right != "" {
					current.Right = labels.Right
				}
				b.SetAxisLabels(current)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&labels.Top, "top", "", "Label for the top of the board")
	cmd.Flags().StringVar(&labels.Bottom, "bottom", "", "Label for the bottom of the board")
	cmd.Flags().StringVar(&labels.Left, "left", "", "Label for the left of the board")
	cmd.Flags().StringVar(&labels.Right, "right", "", "Label for the right of the board")
	cmd.Flags().BoolVar(&reset, "reset", false, "Restore Good, Evil, Lawful and Chaotic")
	return cmd
}

func newBoardDescribeCmd(state *boardState) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <id>",
		Short: "Describe where a sandwich sits, e.g. \"37% Chaotic, 50% Good\"",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, _, err := state.open(cmd.Context())
			if err != nil {
				return err
			}
			selected, err := session.Select(args[0])
			if err != nil {
				return err
			}
			if !selected.Placed() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is not on the board\n", selected.Item.Name)
				return nil
			}
			labels := session.Board().AxisLabels()
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s, %s\n", selected.Item.Name,
				board.DescribeX(*selected.X, labels), board.DescribeY(*selected.Y, labels))
			return nil
		},
	}
}

func newBoardSubmitCmd(state *boardState) *cobra.Command {
	var (
		note   string
		dbPath string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Record the board as a submission",
		Long: `Turns the board into a submission. With --db (or DATABASE_PATH) it is stored
in the SQLite submission store, otherwise it is printed as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, _, err := state.open(cmd.Context())
			if err != nil {
				return err
			}
			sub, err := session.Submit(note)
			if err != nil {
				return err
			}

			if dbPath == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				dbPath = cfg.DatabasePath
			}
			if dbPath == "" {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(sub)
			}

			store, err := requireDatabase(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			id, err := store.Insert(cmd.Context(), sub)
			if err != nil {
				return fmt.Errorf("failed to store submission: %w", err)
			}
			slog.Info("Board submitted", "submission", id, "placements", len(sub.Placements))
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}

	cmd.Flags().StringVar(&note, "note", "", fmt.Sprintf("Note to attach (at most %d characters)", models.MaxNoteLength))
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite submission store (defaults to DATABASE_PATH)")
	return cmd
}

func printBoard(w io.Writer, session *board.Session, cat *catalog.Catalog) {
	b := session.Board()
	labels := b.AxisLabels()

	fmt.Fprintf(w, "Axes: %s (top) / %s (bottom), %s (left) / %s (right)\n",
		labels.Top, labels.Bottom, labels.Left, labels.Right)
	fmt.Fprintf(w, "Placed: %d of %d\n", b.Size(), cat.Len())
	for _, p := range b.Placements() {
		name := p.ItemID
		if item, ok := cat.Get(p.ItemID); ok {
			name = item.Name
		}
		fmt.Fprintf(w, "  %-22s x %6.3f  y %6.3f  %s, %s\n", name, p.X, p.Y,
			board.DescribeX(p.X, labels), board.DescribeY(p.Y, labels))
	}

	available := session.Available()
	if len(available) > 0 {
		names := make([]string, len(available))
		for i, item := range available {
			names[i] = item.ID
		}
		fmt.Fprintf(w, "Available: %s\n", strings.Join(names, ", "))
	}
	if session.IsComplete() {
		fmt.Fprintln(w, "Every sandwich is on the board!")
	}
}

func parsePair(a, b string) (float64, float64, error) {
	x, err := strconv.ParseFloat(a, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid number %q", a)
	}
	y, err := strconv.ParseFloat(b, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid number %q", b)
	}
	return x, y, nil
}

// parseCoordinates parses board coordinates and requires them to be in [-1, 1]
func parseCoordinates(a, b string) (float64, float64, error) {
	x, y, err := parsePair(a, b)
	if err != nil {
		return 0, 0, err
	}
	if x < -1 || x > 1 || y < -1 || y > 1 {
		return 0, 0, fmt.Errorf("%w: (%g, %g)", board.ErrCoordinateOutOfRange, x, y)
	}
	return x, y, nil
}

func parseViewport(s string) (board.Viewport, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return board.Viewport{}, fmt.Errorf("%w: want left,top,width,height, got %q", board.ErrInvalidViewport, s)
	}
	values := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return board.Viewport{}, fmt.Errorf("%w: %q", board.ErrInvalidViewport, s)
		}
		values[i] = v
	}
	v := board.Viewport{Left: values[0], Top: values[1], Width: values[2], Height: values[3]}
	return v, v.Validate()
}
