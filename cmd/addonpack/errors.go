// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/nak-tools/addonpack/internal/builder"
	"github.com/nak-tools/addonpack/internal/hook"
	"github.com/nak-tools/addonpack/internal/issue"
	"github.com/nak-tools/addonpack/pkg/addon"
)

// guideStyle is the glamour style used for catalog guides in verbose mode.
const guideStyle = "dark"

// toActionable attaches an operation, suggestions and a catalog entry to
// builder taxonomy errors. Errors that are already actionable, and errors
// outside the taxonomy, are returned unchanged.
func toActionable(err error) error {
	if _, ok := errors.AsType[*issue.ActionableError](err); ok {
		return err
	}

	ectx := issue.NewErrorContext().Wrap(err)

	if usageErr, ok := errors.AsType[*builder.UsageError](err); ok {
		switch {
		case errors.Is(err, addon.ErrInvalidVersion):
			ectx.WithOperation("parse version").
				WithIssue(issue.InvalidVersionId).
				WithSuggestion("Use a plain version token such as 1.4.0 or 2024.06")
		default:
			ectx.WithOperation("parse arguments")
		}
		if usageErr.Usage != "" {
			ectx.WithSuggestion("Usage: " + usageErr.Usage)
		}
		return ectx.Build()
	}

	if _, ok := errors.AsType[*builder.NotFoundError](err); ok {
		return ectx.WithOperation("find path").
			WithIssue(issue.SourceDirNotFoundId).
			WithSuggestion("Check the path; it must name an existing directory").
			Build()
	}

	if _, ok := errors.AsType[*builder.ManifestError](err); ok {
		if errors.Is(err, addon.ErrManifestNotFound) {
			return ectx.WithOperation("read addon manifest").
				WithIssue(issue.ManifestNotFoundId).
				WithSuggestion(`Create addon.json at the addon root, e.g. {"id": "spore"}`).
				Build()
		}
		return ectx.WithOperation("parse addon manifest").
			WithIssue(issue.ManifestInvalidId).
			WithSuggestion(`The manifest must be a JSON object with a non-empty string "id"`).
			Build()
	}

	if ioErr, ok := errors.AsType[*builder.IOError](err); ok {
		if ioErr.Op == "hook" || errors.Is(err, hook.ErrHookFailed) {
			return ectx.WithOperation("run pre-archive hook").
				WithIssue(issue.HookFailedId).
				WithSuggestion("Run with --verbose to see the hook output and error chain").
				Build()
		}
		return ectx.WithOperation("write archive").
			WithIssue(issue.ArchiveWriteFailedId).
			WithSuggestion("Check free space and permissions of the output and temporary directories").
			Build()
	}

	return err
}

// renderError prints err for the user. Verbose mode adds the error chain and
// the catalog guide, when one is linked.
func renderError(w io.Writer, err error, verbose bool) {
	err = toActionable(err)

	ae, ok := errors.AsType[*issue.ActionableError](err)
	if !ok {
		fmt.Fprintln(w, ErrorStyle.Render("Error:")+" "+err.Error())
		return
	}

	fmt.Fprintln(w, ErrorStyle.Render("Error:")+" "+ae.Format(verbose))
	if !verbose {
		return
	}
	guide, guideErr := ae.Guide(guideStyle)
	if guideErr != nil || guide == "" {
		return
	}
	fmt.Fprint(w, guide)
}
