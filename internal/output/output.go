// Package output renders provider, alias and resolution listings in text,
// JSON, and table formats.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/bimmerbailey/aicommons/internal/registry"
)

// Format represents an output format type.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

// ParseFormat converts a string to a Format, defaulting to text.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "table":
		return FormatTable
	default:
		return FormatText
	}
}

// AliasRow is one alias table entry with its resolution outcome.
type AliasRow struct {
	Alias    string `json:"alias"`
	Target   string `json:"target"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Resolution describes how one identifier was resolved.
type Resolution struct {
	Identifier    string `json:"identifier"`
	Resolved      string `json:"resolved"`
	Provider      string `json:"provider"`
	Protocol      string `json:"protocol"`
	Model         string `json:"model"`
	BaseURL       string `json:"base_url,omitempty"`
	CredentialEnv string `json:"credential_env,omitempty"`
}

// Writer handles writing formatted output.
type Writer struct {
	w      io.Writer
	format Format
	color  ColorMode
}

// New creates a new output Writer.
func New(w io.Writer, format Format) *Writer {
	return &Writer{w: w, format: format, color: ColorAuto}
}

// WithColor sets the color mode used by text output.
func (wr *Writer) WithColor(mode ColorMode) *Writer {
	wr.color = mode
	return wr
}

// WriteJSON outputs any value as indented JSON.
func (wr *Writer) WriteJSON(v interface{}) error {
	enc := json.NewEncoder(wr.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteProviders outputs registry descriptors in the configured format.
func (wr *Writer) WriteProviders(providers []registry.Provider) error {
	switch wr.format {
	case FormatJSON:
		return wr.WriteJSON(providers)
	case FormatTable:
		tw := tabwriter.NewWriter(wr.w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PREFIX\tPROTOCOL\tCREDENTIAL\tKEY PREFIX\tBASE URL")
		fmt.Fprintln(tw, "------\t--------\t----------\t----------\t--------")
		for _, p := range providers {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.Prefix, p.Protocol, credentialLabel(p), dash(p.KeyPrefix), dash(p.BaseURL))
		}
		return tw.Flush()
	default:
		for _, p := range providers {
			fmt.Fprintf(wr.w, "%s (%s) %s %s\n", p.Prefix, p.Protocol, credentialLabel(p), p.BaseURL)
		}
		return nil
	}
}

// WriteAliases outputs alias rows. Rows carrying an error are highlighted in
// text mode when color is enabled.
func (wr *Writer) WriteAliases(rows []AliasRow) error {
	switch wr.format {
	case FormatJSON:
		return wr.WriteJSON(rows)
	case FormatTable:
		tw := tabwriter.NewWriter(wr.w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ALIAS\tTARGET\tPROVIDER\tMODEL\tSTATUS")
		fmt.Fprintln(tw, "-----\t------\t--------\t-----\t------")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Alias, r.Target, dash(r.Provider), dash(r.Model), status(r))
		}
		return tw.Flush()
	default:
		colorize := shouldColorize(wr.color, wr.w)
		for _, r := range rows {
			line := fmt.Sprintf("%s -> %s", r.Alias, r.Target)
			if r.Error != "" {
				line = ColorizeStatus(false, line+" ("+r.Error+")", colorize)
			}
			fmt.Fprintln(wr.w, line)
		}
		return nil
	}
}

// WriteResolution outputs a single resolution.
func (wr *Writer) WriteResolution(r Resolution) error {
	switch wr.format {
	case FormatJSON:
		return wr.WriteJSON(r)
	default:
		tw := tabwriter.NewWriter(wr.w, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "identifier:\t%s\n", r.Identifier)
		fmt.Fprintf(tw, "resolved:\t%s\n", r.Resolved)
		fmt.Fprintf(tw, "provider:\t%s (%s)\n", r.Provider, r.Protocol)
		fmt.Fprintf(tw, "model:\t%s\n", r.Model)
		fmt.Fprintf(tw, "base url:\t%s\n", dash(r.BaseURL))
		fmt.Fprintf(tw, "credential:\t%s\n", dash(r.CredentialEnv))
		return tw.Flush()
	}
}

func credentialLabel(p registry.Provider) string {
	switch {
	case p.CredentialEnv == "":
		return "none"
	case p.CredentialOptional:
		return p.CredentialEnv + " (optional)"
	default:
		return p.CredentialEnv
	}
}

func status(r AliasRow) string {
	if r.Error != "" {
		return r.Error
	}
	return "ok"
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
