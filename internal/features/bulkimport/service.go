package bulkimport

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	common_models "github.com/samSKIF/ThrivioHR-sub000/internal/common/models"
	"github.com/samSKIF/ThrivioHR-sub000/internal/config"
	"github.com/samSKIF/ThrivioHR-sub000/internal/features/directory"

	"go.uber.org/zap"
)

type ImportService interface {
	Validate(ctx context.Context, csvText string) (*ValidationResult, error)
	Plan(ctx context.Context, csvText string) (*PlanResult, error)
	CommitPlan(ctx context.Context, csvText, orgID string, dryRun bool) (*CommitPlanResult, error)
	CreateImportSession(ctx context.Context, csvText, orgID, userID string) (*CreateSessionResult, error)
	PreviewImportSession(ctx context.Context, token string) (*CommitPlanResult, error)
	ApplyImportSession(ctx context.Context, token, orgID string) (*ApplyReport, error)
	ListAudits(ctx context.Context, orgID string, limit int64) ([]common_models.ImportAudit, error)
	GetAudit(ctx context.Context, id string) (*common_models.ImportAudit, error)
}

type ImportServiceImpl struct {
	Directory directory.DirectoryRepository
	AuditRepo ImportAuditRepository
	Codec     *SessionCodec
	Rules     *RuleEngine
	Hub       *ProgressHub
	Logger    *zap.Logger
}

func NewImportService(
	cfg *config.Config,
	dir directory.DirectoryRepository,
	auditRepo ImportAuditRepository,
	hub *ProgressHub,
	logger *zap.Logger,
) ImportService {
	rules, err := NewRuleEngine(cfg.ImportRuleScript)
	if err != nil {
		logger.Warn("import rule script disabled", zap.Error(err))
		rules = nil
	}

	return &ImportServiceImpl{
		Directory: dir,
		AuditRepo: auditRepo,
		Codec:     NewSessionCodec(cfg.ImportSecret, time.Duration(cfg.ImportTTLHours)*time.Hour),
		Rules:     rules,
		Hub:       hub,
		Logger:    logger,
	}
}

func (s *ImportServiceImpl) Validate(_ context.Context, csvText string) (*ValidationResult, error) {
	b := normalizeBatch(csvText)
	s.annotateRules(b)
	result, _ := buildValidation(b)
	return result, nil
}

func (s *ImportServiceImpl) Plan(_ context.Context, csvText string) (*PlanResult, error) {
	b := normalizeBatch(csvText)
	s.annotateRules(b)
	result, proposed := buildValidation(b)
	return &PlanResult{ValidationResult: *result, ProposedUsers: proposed}, nil
}

// CommitPlan computes the full create/update/skip classification with
// manager diagnostics. Planning performs read-only lookups regardless of
// dryRun; the flag exists so callers can state their intent explicitly.
func (s *ImportServiceImpl) CommitPlan(ctx context.Context, csvText, orgID string, dryRun bool) (*CommitPlanResult, error) {
	b := normalizeBatch(csvText)
	s.annotateRules(b)

	planner := &Planner{Repo: s.Directory}
	plan, err := planner.BuildPlan(ctx, orgID, b)
	if err != nil {
		return nil, err
	}

	diag := &ManagerDiagnostics{Repo: s.Directory}
	if err := diag.Annotate(ctx, orgID, plan); err != nil {
		return nil, err
	}

	s.Logger.Info("computed import plan",
		zap.String("orgId", orgID),
		zap.Bool("dryRun", dryRun),
		zap.Int("rows", plan.Overview.Rows),
		zap.Int("creates", plan.Overview.Creates),
		zap.Int("updates", plan.Overview.Updates),
		zap.Int("skips", plan.Overview.Skips))

	return plan, nil
}

func (s *ImportServiceImpl) CreateImportSession(ctx context.Context, csvText, orgID, userID string) (*CreateSessionResult, error) {
	plan, err := s.CommitPlan(ctx, csvText, orgID, true)
	if err != nil {
		return nil, err
	}

	digest := sha256.Sum256([]byte(csvText))
	now := time.Now()

	payload := &ImportSessionPayload{
		V:         1,
		OrgID:     orgID,
		UserID:    userID,
		CreatedAt: now.UnixMilli(),
		Exp:       now.Add(s.Codec.TTL()).UnixMilli(),
		Sha256:    hex.EncodeToString(digest[:]),
		Overview:  plan.Overview,
		Records:   plan.Records,
	}

	token, err := s.Codec.Encode(payload)
	if err != nil {
		return nil, err
	}

	s.Logger.Info("created import session",
		zap.String("orgId", orgID),
		zap.String("sha256", payload.Sha256),
		zap.Int("records", len(payload.Records)))

	return &CreateSessionResult{Token: token, Overview: plan.Overview}, nil
}

func (s *ImportServiceImpl) PreviewImportSession(_ context.Context, token string) (*CommitPlanResult, error) {
	payload, err := s.Codec.Decode(token)
	if err != nil {
		return nil, err
	}
	return &CommitPlanResult{Overview: payload.Overview, Records: payload.Records}, nil
}

func (s *ImportServiceImpl) ApplyImportSession(ctx context.Context, token, orgID string) (*ApplyReport, error) {
	payload, err := s.Codec.Decode(token)
	if err != nil {
		return nil, err
	}

	applier := &Applier{Repo: s.Directory, Hub: s.Hub}
	report, err := applier.Apply(ctx, payload, orgID)
	if err != nil {
		return nil, err
	}

	audit := &common_models.ImportAudit{
		OrgID:              payload.OrgID,
		UserID:             payload.UserID,
		CSVSha256:          payload.Sha256,
		SessionCreatedAt:   time.UnixMilli(payload.CreatedAt),
		Rows:               len(payload.Records),
		CreatedUsers:       report.CreatedUsers,
		UpdatedUsers:       report.UpdatedUsers,
		Skipped:            report.Skipped,
		Errors:             report.Errors,
		DepartmentsCreated: report.DepartmentsCreated,
		LocationsCreated:   report.LocationsCreated,
		MembershipsLinked:  report.MembershipsLinked,
		FinishedAt:         time.Now(),
	}
	if err := s.AuditRepo.Create(ctx, audit); err != nil {
		// the apply already happened; losing the trace is not worth failing it
		s.Logger.Error("failed to store import audit", zap.Error(err), zap.String("orgId", orgID))
	}

	s.Logger.Info("applied import session",
		zap.String("orgId", orgID),
		zap.String("sha256", payload.Sha256),
		zap.Int("created", report.CreatedUsers),
		zap.Int("updated", report.UpdatedUsers),
		zap.Int("errors", report.Errors))

	return report, nil
}

func (s *ImportServiceImpl) ListAudits(ctx context.Context, orgID string, limit int64) ([]common_models.ImportAudit, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.AuditRepo.FindByOrg(ctx, orgID, limit)
}

func (s *ImportServiceImpl) GetAudit(ctx context.Context, id string) (*common_models.ImportAudit, error) {
	return s.AuditRepo.Get(ctx, id)
}

func (s *ImportServiceImpl) annotateRules(b *batch) {
	if s.Rules == nil {
		return
	}
	for i := range b.Rows {
		br := &b.Rows[i]
		if len(br.Errors) > 0 {
			continue
		}
		if reject, msg := s.Rules.Evaluate(br.Row); reject {
			br.Rejected = true
			br.Errors = append(br.Errors, RowError{Row: br.Num, Message: msg})
		}
	}
}

// buildValidation assembles the ValidationResult and the valid rows
func buildValidation(b *batch) (*ValidationResult, []NormalizedRow) {
	result := &ValidationResult{
		RequiredHeaders: RequiredHeaders,
		MissingHeaders:  b.MissingHeaders,
		InferredHeaders: b.InferredHeaders,
		Preview:         []NormalizedRow{},
		SampleErrors:    []RowError{},
	}

	addSample := func(re RowError) {
		if len(result.SampleErrors) < 5 {
			result.SampleErrors = append(result.SampleErrors, re)
		}
	}
	for _, fe := range b.FileErrors {
		addSample(fe)
	}

	proposed := []NormalizedRow{}
	for _, br := range b.Rows {
		result.Rows++
		if len(br.Errors) == 0 {
			result.Valid++
			proposed = append(proposed, br.Row)
			if len(result.Preview) < 3 {
				result.Preview = append(result.Preview, br.Row)
			}
		} else {
			result.Invalid++
			for _, re := range br.Errors {
				addSample(re)
			}
		}
	}

	return result, proposed
}
