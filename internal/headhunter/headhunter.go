package headhunter

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/logger"
)

const (
	apiURL      = "https://api.hh.ru"
	mineResumID = "mine"
	userAgent   = "spigell/hh-interviewer (spigelly@gmail.com)"
)

// ErrNotFound is returned when hh.ru has no object with the requested id.
var ErrNotFound = errors.New("not found on hh.ru")

type Config struct {
	TokenFile string `mapstructure:"token-file"`
	VacancyID string `mapstructure:"vacancy-id"`
	ResumeID  string `mapstructure:"resume-id"`
	UserAgent string `mapstructure:"user-agent"`
}

type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

func New(logger *zap.Logger, token string) *Client {
	return &Client{
		token:  token,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}

// NewFromConfig creates a client with the user agent of cfg, if set.
func NewFromConfig(cfg Config, token string, log *zap.Logger) *Client {
	c := New(logger.WithFields(log, zap.String("source", "hh.ru")), token)
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	return c
}

func (c *Client) GetMineResumes(ctx context.Context) (*Resumes, error) {
	return c.getResumes(ctx, mineResumID)
}
