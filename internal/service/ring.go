package service

import (
	"context"
	"errors"
	"fmt"
	netmail "net/mail"
	"strings"

	"go.uber.org/zap"

	"webring/internal/metrics"
	"webring/internal/models"
	"webring/internal/notify"
	"webring/internal/store"
	"webring/internal/util"
	"webring/internal/verify"
)

// OwnershipToken returns the normalized url and the token its owner must
// serve before joining or leaving.
func (s *Service) OwnershipToken(rawURL string) (string, string, error) {
	u, err := util.NormalizeSiteURL(rawURL)
	if err != nil {
		return "", "", invalid("%v", err)
	}
	return u, verify.Token(u), nil
}

// Join registers a pending site after checking the owner serves the
// ownership token.
func (s *Service) Join(ctx context.Context, rawURL, email string) (models.Site, error) {
	u, err := util.NormalizeSiteURL(rawURL)
	if err != nil {
		metrics.JoinTotal.WithLabelValues("invalid").Inc()
		return models.Site{}, invalid("%v", err)
	}
	addr, err := netmail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		metrics.JoinTotal.WithLabelValues("invalid").Inc()
		return models.Site{}, invalid("contact email is not valid")
	}
	if err := s.verifier.Verify(ctx, u); err != nil {
		metrics.JoinTotal.WithLabelValues("unverified").Inc()
		return models.Site{}, err
	}

	site, err := s.st.AddSite(ctx, u, strings.ToLower(addr.Address))
	switch {
	case err == nil:
		metrics.JoinTotal.WithLabelValues("pending").Inc()
		s.log.Info("site joined", zap.String("site", site.URL))
	case errors.Is(err, store.ErrAlreadyRegistered):
		metrics.JoinTotal.WithLabelValues("duplicate").Inc()
	default:
		metrics.JoinTotal.WithLabelValues("error").Inc()
	}
	return site, err
}

// Leave removes a site on its owner's request, proven the same way as
// at join time.
func (s *Service) Leave(ctx context.Context, rawURL string) error {
	u, err := util.NormalizeSiteURL(rawURL)
	if err != nil {
		return invalid("%v", err)
	}
	if _, err := s.st.GetSite(ctx, u); err != nil {
		return err
	}
	if err := s.verifier.Verify(ctx, u); err != nil {
		return err
	}
	if err := s.st.RemoveSite(ctx, u); err != nil {
		return err
	}
	s.log.Info("site left", zap.String("site", u))
	return nil
}

func (s *Service) ApproveSite(ctx context.Context, admin models.Admin, rawURL string) (models.Site, error) {
	u, err := util.NormalizeSiteURL(rawURL)
	if err != nil {
		return models.Site{}, invalid("%v", err)
	}
	site, err := s.st.ApproveSite(ctx, u, admin.ID)
	metrics.ModerationTotal.WithLabelValues("approve", outcome(err)).Inc()
	if err != nil {
		return models.Site{}, err
	}
	s.log.Info("site approved", zap.String("site", site.URL), zap.Object("admin", admin))
	s.notify(ctx, site)
	return site, nil
}

func (s *Service) DenySite(ctx context.Context, admin models.Admin, rawURL, reason string) (models.Site, error) {
	u, err := util.NormalizeSiteURL(rawURL)
	if err != nil {
		return models.Site{}, invalid("%v", err)
	}
	reason = strings.TrimSpace(reason)
	if len(reason) > 1000 {
		return models.Site{}, invalid("reason must be at most 1000 characters")
	}
	site, err := s.st.DenySite(ctx, u, reason, admin.ID)
	metrics.ModerationTotal.WithLabelValues("deny", outcome(err)).Inc()
	if err != nil {
		return models.Site{}, err
	}
	s.log.Info("site denied", zap.String("site", site.URL), zap.String("reason", reason), zap.Object("admin", admin))
	s.notify(ctx, site)
	return site, nil
}

func (s *Service) RemoveSite(ctx context.Context, admin models.Admin, rawURL string) error {
	u, err := util.NormalizeSiteURL(rawURL)
	if err != nil {
		return invalid("%v", err)
	}
	err = s.st.RemoveSite(ctx, u)
	metrics.ModerationTotal.WithLabelValues("remove", outcome(err)).Inc()
	if err != nil {
		return err
	}
	s.log.Info("site removed", zap.String("site", u), zap.Object("admin", admin))
	return nil
}

func (s *Service) notify(ctx context.Context, site models.Site) {
	err := s.notifier.SiteDecided(ctx, notify.Decision{
		RingName: s.cfg.Ring.Name,
		SiteURL:  site.URL,
		Email:    site.Email,
		Status:   site.Status,
		Reason:   reasonOf(site),
	})
	if err != nil {
		s.log.Warn("decision notification failed", zap.String("site", site.URL), zap.Error(err))
	}
}

func reasonOf(site models.Site) string {
	if site.Decision == nil {
		return ""
	}
	return site.Decision.Reason
}

func (s *Service) ListSites(ctx context.Context, status models.SiteStatus) ([]models.Site, error) {
	if !status.Valid() {
		return nil, invalid("unknown status %q", status)
	}
	return s.st.ListSites(ctx, status)
}

// ApprovedURLs is the public member list in ring order.
func (s *Service) ApprovedURLs(ctx context.Context) ([]string, error) {
	sites, err := s.st.ListApproved(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(sites))
	for _, site := range sites {
		out = append(out, site.URL)
	}
	return out, nil
}

func (s *Service) Next(ctx context.Context, currentURL string) (string, error) {
	return s.navigate(ctx, "next", currentURL, s.st.Next)
}

func (s *Service) Prev(ctx context.Context, currentURL string) (string, error) {
	return s.navigate(ctx, "prev", currentURL, s.st.Prev)
}

func (s *Service) navigate(ctx context.Context, direction, currentURL string, step func(context.Context, string) (string, error)) (string, error) {
	u, err := util.NormalizeSiteURL(currentURL)
	if err != nil {
		metrics.NavigationTotal.WithLabelValues(direction, "not_approved").Inc()
		return "", &store.Error{Kind: store.KindNotApproved, Op: direction, Err: err}
	}
	dest, err := step(ctx, u)
	metrics.NavigationTotal.WithLabelValues(direction, navOutcome(err)).Inc()
	return dest, err
}

func (s *Service) Random(ctx context.Context) (string, error) {
	dest, err := s.st.Random(ctx)
	metrics.NavigationTotal.WithLabelValues("random", navOutcome(err)).Inc()
	return dest, err
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return strings.ReplaceAll(store.KindOf(err).String(), " ", "_")
}

func navOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, store.ErrNotFound):
		return "end_of_ring"
	default:
		return outcome(err)
	}
}

// DescribeOwnershipError turns a verifier failure into a message for the
// site owner.
func DescribeOwnershipError(err error, path string) string {
	switch {
	case errors.Is(err, verify.ErrOwnershipMismatch):
		return fmt.Sprintf("the token served at %s does not match this site", path)
	case errors.Is(err, verify.ErrOwnershipMissing):
		return fmt.Sprintf("no ownership token found at %s", path)
	default:
		return "the site could not be reached to verify ownership"
	}
}
