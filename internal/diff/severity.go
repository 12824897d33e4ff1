package diff

import (
	"strconv"

	"github.com/distribution/reference"
	"github.com/stackgen-cli/topogen/internal/models"
	"github.com/stackgen-cli/topogen/internal/naming"
)

// imageRef is the part of an image reference a severity depends on.
type imageRef struct {
	repo   string // familiar repository name, e.g. "postgres" or "shop/db"
	tag    string // "latest" when neither a tag nor a digest is given
	pinned bool   // carries a digest
}

// parseImageRef reads ref with the container engine's normalization, so
// "postgres" and "docker.io/library/postgres:latest" are the same image.
// A reference that does not parse is kept whole as its repository.
func parseImageRef(ref string) imageRef {
	named, err := reference.ParseNormalizedNamed(ref)
	if err != nil {
		return imageRef{repo: ref}
	}

	img := imageRef{repo: reference.FamiliarName(named)}
	if tagged, ok := named.(reference.Tagged); ok {
		img.tag = tagged.Tag()
	}
	if _, ok := named.(reference.Digested); ok {
		img.pinned = true
	}
	if img.tag == "" && !img.pinned {
		img.tag = "latest"
	}
	return img
}

// release returns the leading number of the tag: 16 for "16-alpine", 1 for
// "v1.2.3". Tags like "latest" or "alpine" have none.
func (r imageRef) release() (int, bool) {
	digits := r.tag
	if len(digits) > 0 && digits[0] == 'v' {
		digits = digits[1:]
	}
	end := 0
	for end < len(digits) && digits[end] >= '0' && digits[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(digits[:end])
	return n, err == nil
}

// imageSeverity rates a change to a resource's pulled image. Losing the
// image or stepping back a release is breaking; switching to another
// repository or a newer release is a warning.
func imageSeverity(old, new string) models.Severity {
	switch {
	case old == new, old == "":
		return models.SeverityInfo
	case new == "":
		return models.SeverityBreaking
	}

	o, n := parseImageRef(old), parseImageRef(new)
	if o.repo != n.repo {
		return models.SeverityWarning
	}
	if o.tag == n.tag {
		return models.SeverityInfo
	}

	oldRelease, ok := o.release()
	if !ok {
		return models.SeverityInfo
	}
	newRelease, ok := n.release()
	if !ok {
		return models.SeverityInfo
	}
	switch {
	case newRelease < oldRelease:
		return models.SeverityBreaking
	case newRelease > oldRelease:
		return models.SeverityWarning
	}
	return models.SeverityInfo
}

// mappedImage is the image a mapped resource is built as. Without an explicit
// tag the generators fall back to the project-scoped image name.
func mappedImage(p *models.Project, m models.MappedResource) string {
	if m.Override.Tag != "" {
		return m.Override.Tag
	}
	return naming.ImageName(p.ID, m.ID)
}

// buildTagSeverity rates a change to a mapping's tag. The image is built
// locally rather than pulled, so a new version is informational; renaming
// the repository is a warning since links and scripts address it by name.
func buildTagSeverity(old, new string) models.Severity {
	if parseImageRef(old).repo != parseImageRef(new).repo {
		return models.SeverityWarning
	}
	return models.SeverityInfo
}
