// Package algorithms resolves a volume's on-disk version number into the
// concrete AEAD, data cipher, and digest it selects, grounded on the
// small enum-to-struct dispatch tables the reference corpus uses for its
// container-format version fields.
package algorithms

import (
	"github.com/deploymenttheory/go-svmgr/internal/interfaces"
	"github.com/deploymenttheory/go-svmgr/internal/sealer"

	svmgrerrors "github.com/deploymenttheory/go-svmgr/internal/errors"
)

// Version identifies the on-disk format revision, spec.md §6.
type Version uint32

// AES256XTSSHA256 is the only version currently defined (kDefaultVersion,
// kAES256_XTS_SHA256 = 1): AEAD = AES-CMAC-SIV (sealer.NewAES128GCMSIV;
// this is not AES-GCM-SIV), data cipher = AES-256-XTS, digest = SHA-256.
const AES256XTSSHA256 Version = 1

// aes256XTS identifies the downstream data-path cipher bound via
// BindCiphers for version AES256XTSSHA256. The Manager never runs this
// cipher itself (spec.md §1 excludes the bulk XTS engine as an external
// collaborator); it only needs to agree on key/IV sizes with it.
type aes256XTS struct{}

func (aes256XTS) KeyLen() int { return 32 }
func (aes256XTS) IVLen() int  { return 16 }

// Set is the resolved algorithm bundle for a version: the AEAD used to
// wrap slots, and the data cipher the bulk data path is expected to use.
type Set struct {
	Version    Version
	AEAD       interfaces.AEAD
	DataCipher interfaces.DataCipher
	DataKeyLen int
	DataIVLen  int
	CipherID   string
	DigestID   string
}

// Select resolves version into its algorithm Set, or not-supported if the
// version is unknown.
func Select(version Version) (Set, error) {
	switch version {
	case AES256XTSSHA256:
		cipher := aes256XTS{}
		return Set{
			Version:    version,
			AEAD:       sealer.NewAES128GCMSIV(),
			DataCipher: cipher,
			DataKeyLen: cipher.KeyLen(),
			DataIVLen:  cipher.IVLen(),
			CipherID:   "AES-256-XTS",
			DigestID:   "SHA-256",
		}, nil
	default:
		return Set{}, svmgrerrors.Newf(svmgrerrors.NotSupported, "algorithms: unknown version %d", version)
	}
}
