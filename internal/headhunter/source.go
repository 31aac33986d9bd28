package headhunter

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/interview"
)

// SetupSource builds interview setups for the vacancy of cfg. The résumé is
// cfg.ResumeID when set, otherwise the user id is taken as the résumé id.
func (c *Client) SetupSource(cfg Config, hrName string, softTopics []string) interview.SetupSource {
	return func(ctx context.Context, userID string) (*interview.Setup, error) {
		vacancy, err := c.GetVacancy(ctx, cfg.VacancyID)
		if err != nil {
			return nil, fmt.Errorf("fetching vacancy %s: %w", cfg.VacancyID, err)
		}

		resumeID := cfg.ResumeID
		if resumeID == "" {
			resumeID = userID
		}
		resume, err := c.GetResumeDetails(ctx, resumeID)
		if err != nil {
			return nil, fmt.Errorf("fetching resume %s: %w", resumeID, err)
		}

		c.logger.Info("interview setup fetched",
			zap.String("vacancy", vacancy.Name),
			zap.String("resume", resume.Title),
		)

		return &interview.Setup{
			HRName:        hrName,
			Vacancy:       vacancy.Profile(),
			ResumeContext: resume.Context(),
			SoftTopics:    softTopics,
		}, nil
	}
}
