// Package media signs direct browser uploads to Cloudinary.
package media

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
)

const DefaultFolder = "products"

type Signature struct {
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
	APIKey    string `json:"apiKey"`
	CloudName string `json:"cloudName"`
	Folder    string `json:"folder"`
	PublicID  string `json:"publicId,omitempty"`
}

type SignRequest struct {
	Folder   string `json:"folder"`
	PublicID string `json:"publicId"`
}

type Signer struct {
	cld *cloudinary.Cloudinary
	now func() time.Time
}

func NewSigner(cloudName, apiKey, apiSecret string) (*Signer, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to configure cloudinary: %w", err)
	}
	return &Signer{cld: cld, now: time.Now}, nil
}

// Sign signs the upload parameters the browser will send alongside the file.
// The secret never leaves the server.
func (s *Signer) Sign(req SignRequest) (*Signature, error) {
	folder := strings.Trim(strings.TrimSpace(req.Folder), "/")
	if folder == "" {
		folder = DefaultFolder
	}
	if strings.Contains(folder, "..") {
		return nil, fmt.Errorf("invalid folder %q", req.Folder)
	}
	publicID := strings.TrimSpace(req.PublicID)

	timestamp := s.now().Unix()
	params := url.Values{}
	params.Set("folder", folder)
	params.Set("timestamp", strconv.FormatInt(timestamp, 10))
	if publicID != "" {
		params.Set("public_id", publicID)
	}

	signature, err := api.SignParameters(params, s.cld.Config.Cloud.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign upload parameters: %w", err)
	}

	return &Signature{
		Signature: signature,
		Timestamp: timestamp,
		APIKey:    s.cld.Config.Cloud.APIKey,
		CloudName: s.cld.Config.Cloud.CloudName,
		Folder:    folder,
		PublicID:  publicID,
	}, nil
}
