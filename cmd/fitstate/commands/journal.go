package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"text/tabwriter"
	"time"

	derrors "git.home.luguber.info/inful/fitstate/internal/foundation/errors"
	"git.home.luguber.info/inful/fitstate/internal/journal"
	"git.home.luguber.info/inful/fitstate/internal/state"
)

// LatestSession selects the most recent session in journal replay.
const LatestSession = "latest"

// JournalCmd groups the journal subcommands.
type JournalCmd struct {
	DB string `help:"Journal database path (overrides journal.path)"`

	List   JournalListCmd   `cmd:"" help:"List recorded sessions"`
	Replay JournalReplayCmd `cmd:"" help:"Rebuild the state tree a session produced"`
	Path   JournalPathCmd   `cmd:"" help:"Show every recorded write to one path"`
	Prune  JournalPruneCmd  `cmd:"" help:"Delete sessions older than a retention window"`
}

// JournalListCmd implements 'journal list'.
type JournalListCmd struct {
	Format string `short:"f" help:"Output format" enum:"table,yaml,json" default:"table"`
}

// JournalReplayCmd implements 'journal replay'.
type JournalReplayCmd struct {
	Session string `arg:"" optional:"" help:"Session ID, or 'latest'" default:"latest"`
	Format  string `short:"f" help:"Output format" enum:"yaml,json" default:"yaml"`
}

// JournalPathCmd implements 'journal path'.
type JournalPathCmd struct {
	Path   string `arg:"" help:"State path"`
	Format string `short:"f" help:"Output format" enum:"yaml,json" default:"yaml"`
}

// JournalPruneCmd implements 'journal prune'.
type JournalPruneCmd struct {
	OlderThan time.Duration `help:"Delete sessions whose last record is older than this" default:"720h"`
}

func (j *JournalCmd) open(g *Global, root *CLI) (journal.Store, error) {
	dbPath := j.DB
	if dbPath == "" {
		cfg, err := root.loadConfig(g)
		if err != nil {
			return nil, err
		}
		dbPath = cfg.Journal.Path
	}
	return OpenJournal(dbPath)
}

// OpenJournal opens an existing journal database. Unlike journal.NewSQLiteStore
// it never creates a new file.
func OpenJournal(dbPath string) (journal.Store, error) {
	if dbPath != journal.MemoryPath {
		if _, err := os.Stat(dbPath); errors.Is(err, fs.ErrNotExist) {
			return nil, derrors.NotFoundError("journal database not found").
				WithContext("path", dbPath).
				Build()
		}
	}
	return journal.NewSQLiteStore(dbPath)
}

func (l *JournalListCmd) Run(g *Global, root *CLI, parent *JournalCmd) error {
	js, err := parent.open(g, root)
	if err != nil {
		return err
	}
	defer func() { _ = js.Close() }()

	sessions, err := js.Sessions(context.Background())
	if err != nil {
		return err
	}
	if l.Format != "table" {
		return writeOutput(g.out(), l.Format, sessions)
	}
	return writeSessionTable(g.out(), sessions)
}

func writeSessionTable(w io.Writer, sessions []journal.Session) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SESSION\tRECORDS\tFIRST\tLAST")
	for _, s := range sessions {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", s.ID, s.Records,
			s.FirstAt.Format(time.RFC3339), s.LastAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func (r *JournalReplayCmd) Run(g *Global, root *CLI, parent *JournalCmd) error {
	js, err := parent.open(g, root)
	if err != nil {
		return err
	}
	defer func() { _ = js.Close() }()

	tree, err := ReplaySession(context.Background(), js, r.Session)
	if err != nil {
		return err
	}
	return writeOutput(g.out(), r.Format, tree)
}

// ReplaySession rebuilds the tree recorded by sessionID, or by the newest
// session when sessionID is LatestSession.
func ReplaySession(ctx context.Context, js journal.Store, sessionID string) (map[string]any, error) {
	if sessionID == "" || sessionID == LatestSession {
		sessions, err := js.Sessions(ctx)
		if err != nil {
			return nil, err
		}
		if len(sessions) == 0 {
			return nil, derrors.NotFoundError("journal has no sessions").Build()
		}
		sessionID = sessions[len(sessions)-1].ID
	}

	records, err := js.BySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, derrors.NotFoundError("session not found").WithContext("session", sessionID).Build()
	}
	return journal.Replay(records)
}

func (p *JournalPathCmd) Run(g *Global, root *CLI, parent *JournalCmd) error {
	sp, err := state.ParsePath(p.Path)
	if err != nil {
		return err
	}
	js, err := parent.open(g, root)
	if err != nil {
		return err
	}
	defer func() { _ = js.Close() }()

	records, err := js.ByPath(context.Background(), sp.String())
	if err != nil {
		return err
	}
	writes, err := pathWrites(records)
	if err != nil {
		return err
	}
	return writeOutput(g.out(), p.Format, writes)
}

func (p *JournalPruneCmd) Run(g *Global, root *CLI, parent *JournalCmd) error {
	if p.OlderThan <= 0 {
		return derrors.ValidationError("--older-than must be positive").
			WithContext("older_than", p.OlderThan.String()).
			Build()
	}
	js, err := parent.open(g, root)
	if err != nil {
		return err
	}
	defer func() { _ = js.Close() }()

	n, err := js.Prune(context.Background(), time.Now().Add(-p.OlderThan), "")
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.out(), "pruned %d records\n", n)
	return nil
}

// PathWrite is the display form of one recorded write.
type PathWrite struct {
	Session    string    `json:"session" yaml:"session"`
	Sequence   uint64    `json:"sequence" yaml:"sequence"`
	Value      any       `json:"value" yaml:"value"`
	Depth      int       `json:"depth" yaml:"depth"`
	RecordedAt time.Time `json:"recorded_at" yaml:"recorded_at"`
}

func pathWrites(records []journal.Record) ([]PathWrite, error) {
	out := make([]PathWrite, 0, len(records))
	for _, rec := range records {
		var value any
		if len(rec.Value) > 0 {
			if err := json.Unmarshal(rec.Value, &value); err != nil {
				return nil, journal.ErrDecodeFailed.WithCause(err).
					WithContext("path", rec.Path).
					WithContext("id", rec.ID)
			}
		}
		out = append(out, PathWrite{
			Session:    rec.SessionID,
			Sequence:   rec.Sequence,
			Value:      value,
			Depth:      rec.Depth,
			RecordedAt: rec.RecordedAt,
		})
	}
	return out, nil
}
