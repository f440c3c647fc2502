package pipeline

import "log/slog"

// Canonical log field names shared by the build stages.
const (
	KeyBuildID = "build_id"
	KeySource  = "source"
	KeyOutput  = "output"
	KeyStage   = "stage"
	KeyError   = "error"
)

func BuildID(id string) slog.Attr { return slog.String(KeyBuildID, id) }
func Source(p string) slog.Attr { return slog.String(KeySource, p) }
func Output(p string) slog.Attr { return slog.String(KeyOutput, p) }
func Stage(name string) slog.Attr { return slog.String(KeyStage, name) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
