package payload

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	"github.com/pkg/errors"
)

const (
	AnnotationHash      = "kpm.hash"
	AnnotationVersion   = "kpm.version"
	AnnotationPackage   = "kpm.package"
	AnnotationParent    = "kpm.parent"
	AnnotationProtected = "kpm.protected"
)

// canonicalJSON serializes obj following RFC 8785, so equal trees always
// produce equal bytes.
func canonicalJSON(obj map[string]interface{}) ([]byte, error) {
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	return jsoncanonicalizer.Transform(raw)
}

// Annotate stamps provenance and content integrity annotations on r. owner
// is the package the resource belongs to, parent the name of the package
// requesting the build.
//
// The hash covers the manifest as received, with an empty annotations
// block created if it was missing, and is computed before the provenance
// annotations are written. Annotating the same resource twice therefore
// hashes the first pass's annotations; callers build each resource once.
func Annotate(owner *Package, parent string, r *Resource) error {
	metadata, err := r.metadata()
	if err != nil {
		return err
	}
	annotations, ok := metadata["annotations"].(map[string]interface{})
	if !ok {
		if metadata["annotations"] != nil {
			return newManifestError(r, "metadata.annotations is not a mapping", nil)
		}
		annotations = map[string]interface{}{}
		metadata["annotations"] = annotations
	}

	if r.Hash {
		raw, err := canonicalJSON(r.Value.Object)
		if err != nil {
			return newManifestError(r, "could not serialize manifest", errors.Wrap(err, "hash"))
		}
		sum := sha256.Sum256(raw)
		annotations[AnnotationHash] = hex.EncodeToString(sum[:])
	}

	annotations[AnnotationVersion] = owner.Version
	annotations[AnnotationPackage] = owner.Name
	annotations[AnnotationParent] = parent
	annotations[AnnotationProtected] = strconv.FormatBool(r.Protected)
	return nil
}
