// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Id identifies a catalog entry. The zero Id links nothing.
type Id int

const (
	SourceDirNotFoundId Id = iota + 1
	ManifestNotFoundId
	ManifestInvalidId
	InvalidVersionId
	ArchiveWriteFailedId
	ConfigLoadFailedId
	HookFailedId
	InstallConflictId
)

type (
	// MarkdownMsg is the guide body shown in verbose mode.
	MarkdownMsg string

	// HttpLink is listed under "See also" when a guide is rendered.
	HttpLink string

	// Issue is a catalog entry: longer guidance for one class of failure.
	Issue struct {
		id    Id
		mdMsg MarkdownMsg
		links []HttpLink
	}
)

// render is swapped in tests to skip terminal styling.
var render = glamour.Render

func (i *Issue) Id() Id { return i.id }

func (i *Issue) MarkdownMsg() MarkdownMsg { return i.mdMsg }

// Links returns a copy of the entry's reference links.
func (i *Issue) Links() []HttpLink { return slices.Clone(i.links) }

// Render produces the guide with glamour using stylePath ("dark", "light",
// "notty" or a JSON style file).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.links) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.links {
			md.WriteString("\n- <" + string(link) + ">")
		}
	}
	return render(md.String(), stylePath)
}

var (
	sourceDirNotFoundIssue = &Issue{
		id: SourceDirNotFoundId,
		mdMsg: `
# Addon directory not found!

The first argument must be an existing directory holding the addon sources.

## Things you can try:
- Check the path for typos; relative paths resolve from the current directory
- Make sure you pass the addon directory itself, not its parent
- Run ` + "`addonpack validate <addon-dir>`" + ` to check a directory without building`,
	}

	manifestNotFoundIssue = &Issue{
		id: ManifestNotFoundId,
		mdMsg: `
# No addon.json found!

Every addon directory needs an ` + "`addon.json`" + ` manifest at its root.
The manifest's ` + "`id`" + ` names the archive and the install directory.

## Things you can try:
- Create ` + "`addon.json`" + ` with at least an id:

~~~json
{ "id": "my-addon" }
~~~

- If your manifest uses another name, set ` + "`build.manifest_name`" + ` in the config file`,
	}

	manifestInvalidIssue = &Issue{
		id: ManifestInvalidId,
		mdMsg: `
# Invalid addon.json!

The manifest could not be parsed, or it is missing a usable ` + "`id`" + `.

## Things you can try:
- Check the JSON syntax (trailing commas and comments are not allowed)
- Make sure ` + "`id`" + ` is a non-empty string
- The id becomes part of a file name, so it cannot contain ` + "`/`" + ` or ` + "`\\`" + `
- Optional fields (name, version, description, author, homepage) must be strings`,
		links: []HttpLink{"https://www.json.org/json-en.html"},
	}

	invalidVersionIssue = &Issue{
		id: InvalidVersionId,
		mdMsg: `
# Invalid version!

The version is used verbatim in the archive name ` + "`<id>-<version>.zip`" + `.

## Things you can try:
- Use a plain token such as ` + "`1.4.0`" + ` or ` + "`2024.06`" + `
- Do not include path separators or whitespace
- With ` + "`--strict-version`" + `, use semantic versioning: MAJOR.MINOR.PATCH`,
		links: []HttpLink{"https://semver.org"},
	}

	archiveWriteFailedIssue = &Issue{
		id: ArchiveWriteFailedId,
		mdMsg: `
# Failed to write the archive!

Staging, compressing, or moving the archive into place failed.
No partial archive was left in the output directory.

## Things you can try:
- Check free space in the temporary directory (` + "`$TMPDIR`" + `) and the output directory
- Check write permissions on the output directory
- Re-run with ` + "`--verbose`" + ` to see the full error chain`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file exists but could not be loaded.

## Things you can try:
- Check the CUE syntax of the config file
- Run ` + "`addonpack config path`" + ` to see which file is used
- Run ` + "`addonpack config init`" + ` to write a fresh default config`,
		links: []HttpLink{"https://cuelang.org/docs/"},
	}

	hookFailedIssue = &Issue{
		id: HookFailedId,
		mdMsg: `
# Pre-archive hook failed!

The ` + "`build.hooks.pre_archive`" + ` script exited with a non-zero status.
It runs in the staged copy, so the source directory was not touched.

## Things you can try:
- Run the hook by hand inside a copy of the addon directory
- The hook sees ` + "`ADDON_ID`" + `, ` + "`ADDON_VERSION`" + `, ` + "`ADDON_STAGE_DIR`" + ` and ` + "`ADDON_SOURCE_DIR`" + `
- Remove the hook from the config to build without it`,
	}

	installConflictIssue = &Issue{
		id: InstallConflictId,
		mdMsg: `
# Addon already installed!

The target addon directory already exists.

## Things you can try:
- Pass ` + "`--overwrite`" + ` to replace the installed copy
- Use ` + "`--addons-dir`" + ` to install somewhere else`,
	}

	issues = map[Id]*Issue{
		sourceDirNotFoundIssue.Id():  sourceDirNotFoundIssue,
		manifestNotFoundIssue.Id():   manifestNotFoundIssue,
		manifestInvalidIssue.Id():    manifestInvalidIssue,
		invalidVersionIssue.Id():     invalidVersionIssue,
		archiveWriteFailedIssue.Id(): archiveWriteFailedIssue,
		configLoadFailedIssue.Id():   configLoadFailedIssue,
		hookFailedIssue.Id():         hookFailedIssue,
		installConflictIssue.Id():    installConflictIssue,
	}
)

// Values returns every catalog entry ordered by id.
func Values() []*Issue {
	values := maps.Values(issues)
	slices.SortFunc(values, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return values
}

// Get returns the entry for id, or nil when there is none.
func Get(id Id) *Issue { return issues[id] }
