package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/spf13/cobra"
	"github.com/thiagokokada/gitbind/internal/git"
)

func newRevparseCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "revparse REV",
		Short: "Resolve a revision to the blob, commit, tag or tree it names",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			svc, err := git.Open(a.cfg.Repo)
			if err != nil {
				return err
			}
			obj, err := svc.RevParseSingle(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(objectJSON(obj))
			}
			return printObject(a.stdout, obj)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the object as JSON")
	return cmd
}

func hashStrings(hashes []plumbing.Hash) []string {
	out := make([]string, 0, len(hashes))
	for _, h := range hashes {
		out = append(out, h.String())
	}
	return out
}

func signatureJSON(sig git.Signature) map[string]any {
	return map[string]any{
		"name":  sig.Name,
		"email": sig.Email,
		"when":  sig.When.Format(time.RFC3339),
	}
}

func objectJSON(obj git.Object) map[string]any {
	m := map[string]any{
		"type": obj.Kind().String(),
		"id":   obj.ID().String(),
	}
	switch o := obj.(type) {
	case *git.Blob:
		m["size"] = o.Size
		m["binary"] = o.Binary
	case *git.Commit:
		m["tree"] = o.Tree.String()
		m["parents"] = hashStrings(o.ParentHashes)
		m["author"] = signatureJSON(o.Author)
		m["committer"] = signatureJSON(o.Committer)
		m["summary"] = o.Summary
		m["message"] = o.Message
	case *git.Tag:
		m["name"] = o.Name
		m["target"] = o.Target.String()
		m["target_type"] = o.TargetKind.String()
		m["tagger"] = signatureJSON(o.Tagger)
		m["message"] = o.Message
	case *git.Tree:
		entries := make([]map[string]any, 0, len(o.Entries))
		for _, e := range o.Entries {
			entries = append(entries, map[string]any{
				"name": e.Name,
				"mode": git.ModeString(e.Mode),
				"type": e.Kind.String(),
				"id":   e.Hash.String(),
			})
		}
		m["entries"] = entries
	}
	return m
}

func formatSignature(sig git.Signature) string {
	return fmt.Sprintf("%s <%s> %s", sig.Name, sig.Email, sig.When.Format(time.RFC3339))
}

func indent(message string) string {
	lines := strings.Split(strings.TrimRight(message, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "    " + l
	}
	return strings.Join(lines, "\n")
}

// printObject writes obj in a layout close to git cat-file -p.
func printObject(w io.Writer, obj git.Object) error {
	var b strings.Builder
	switch o := obj.(type) {
	case *git.Blob:
		fmt.Fprintf(&b, "blob %s\nsize %d\nbinary %t\n", o.Hash, o.Size, o.Binary)
	case *git.Commit:
		fmt.Fprintf(&b, "commit %s\ntree %s\n", o.Hash, o.Tree)
		for _, p := range o.ParentHashes {
			fmt.Fprintf(&b, "parent %s\n", p)
		}
		fmt.Fprintf(&b, "author %s\ncommitter %s\n\n%s\n",
			formatSignature(o.Author), formatSignature(o.Committer), indent(o.Message))
	case *git.Tag:
		fmt.Fprintf(&b, "tag %s\nobject %s\ntype %s\nname %s\ntagger %s\n\n%s\n",
			o.Hash, o.Target, o.TargetKind, o.Name, formatSignature(o.Tagger), indent(o.Message))
	case *git.Tree:
		fmt.Fprintf(&b, "tree %s\n", o.Hash)
		for _, e := range o.Entries {
			fmt.Fprintf(&b, "%s %s %s\t%s\n", git.ModeString(e.Mode), e.Kind, e.Hash, e.Name)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
