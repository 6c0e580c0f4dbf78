package pkg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

var ErrUploadFailed = errors.New("upload failed")

type CloudinaryConfig struct {
	BaseURL      string
	CloudName    string
	UploadPreset string
	Folder       string
}

// CloudinaryClient unsigned 上传，只返回 secure_url
type CloudinaryClient struct {
	cfg  CloudinaryConfig
	HTTP *http.Client
}

func NewCloudinaryClient(cfg CloudinaryConfig) *CloudinaryClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.cloudinary.com"
	}
	return &CloudinaryClient{cfg: cfg, HTTP: &http.Client{Timeout: 30 * time.Second}}
}

type cloudinaryResponse struct {
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *CloudinaryClient) uploadURL() string {
	return fmt.Sprintf("%s/v1_1/%s/image/upload", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.CloudName)
}

func (c *CloudinaryClient) Upload(ctx context.Context, filename string, content []byte) (string, error) {
	if c.cfg.CloudName == "" {
		return "", fmt.Errorf("%w: cloudinary cloud name not configured", ErrUploadFailed)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(content); err != nil {
		return "", err
	}
	_ = w.WriteField("upload_preset", c.cfg.UploadPreset)
	if c.cfg.Folder != "" {
		_ = w.WriteField("folder", c.cfg.Folder)
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL(), &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var out cloudinaryResponse
	_ = json.Unmarshal(raw, &out)

	if resp.StatusCode != http.StatusOK {
		if out.Error != nil && out.Error.Message != "" {
			return "", fmt.Errorf("%w: %s", ErrUploadFailed, out.Error.Message)
		}
		return "", ErrUploadFailed
	}
	if out.SecureURL == "" {
		return "", fmt.Errorf("%w: missing secure_url", ErrUploadFailed)
	}
	return out.SecureURL, nil
}
