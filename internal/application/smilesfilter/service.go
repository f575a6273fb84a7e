// Package smilesfilter is the SMILES normalization pipeline. It prepares a
// structure for property calculation by running it through the structure
// standardizer and the tautomer resolver in a fixed stage order, and rejects
// structures a calculator cannot handle.
//
// The pipeline holds no per-call state. Calls for different structures may
// run concurrently on one Service.
package smilesfilter

import (
	"context"
	"strings"
	"time"

	"github.com/turtacn/CTS-Broker/internal/domain/structure"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CTS-Broker/pkg/errors"
)

// Service defines the pipeline entry points used by the calculator adapters
// and the transports.
type Service interface {
	// FilterGeneric runs the calculator-independent stages: removeExplicitH
	// and transform, major tautomer, neutralize.
	FilterGeneric(ctx context.Context, smiles string) (string, error)

	// FilterForCalculator validates smiles for calc and applies the
	// calculator-specific stages.
	FilterForCalculator(ctx context.Context, smiles string, calc structure.Calculator) (string, error)

	// IsValidStructure runs the exclusion check then FilterGeneric. An
	// excluded structure yields Valid=false and no error.
	IsValidStructure(ctx context.Context, smiles string) (*structure.Validity, error)

	// Validate runs the exclusion check and the mass gate of calc's policy.
	Validate(ctx context.Context, smiles string, calc structure.Calculator) error
}

// Stage sequences.
var (
	genericActions     = []structure.Action{structure.ActionRemoveExplicitH, structure.ActionTransform}
	neutralizeActions  = []structure.Action{structure.ActionNeutralize}
	clearStereoActions = []structure.Action{structure.ActionClearStereo}
	untransformActions = []structure.Action{structure.ActionUntransform}
)

const (
	entryGeneric    = "generic"
	entryCalculator = "calculator"
	entryValidity   = "validity"
)

type serviceImpl struct {
	standardizer structure.Standardizer
	tautomers    structure.TautomerResolver
	logger       logging.Logger
	metrics      *prometheus.BrokerMetrics
}

// NewService creates the pipeline. A nil metrics records nothing.
func NewService(
	standardizer structure.Standardizer,
	tautomers structure.TautomerResolver,
	logger logging.Logger,
	metrics *prometheus.BrokerMetrics,
) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNopBrokerMetrics()
	}
	return &serviceImpl{
		standardizer: standardizer,
		tautomers:    tautomers,
		logger:       logger.Named("smilesfilter"),
		metrics:      metrics,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Entry points
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) FilterGeneric(ctx context.Context, smiles string) (string, error) {
	start := time.Now()
	out, err := s.filterGeneric(ctx, smiles)
	s.record(entryGeneric, "", start, err)
	if err != nil {
		s.logger.WithContext(ctx).Warn("generic filter failed",
			logging.String(logging.FieldStructure, smiles), logging.Err(err))
		return "", err
	}
	return out, nil
}

func (s *serviceImpl) FilterForCalculator(ctx context.Context, smiles string, calc structure.Calculator) (string, error) {
	start := time.Now()
	out, err := s.filterForCalculator(ctx, smiles, calc)
	s.record(entryCalculator, calc.String(), start, err)
	if err != nil {
		s.logger.WithContext(ctx).Warn("calculator filter failed",
			logging.String(logging.FieldStructure, smiles),
			logging.String(logging.FieldCalculator, calc.String()),
			logging.Err(err))
		return "", err
	}
	return out, nil
}

func (s *serviceImpl) IsValidStructure(ctx context.Context, smiles string) (*structure.Validity, error) {
	start := time.Now()
	v := &structure.Validity{SMILES: smiles}

	if err := structure.CheckExclusions(smiles); err != nil {
		s.reject(ctx, err, "", smiles)
		s.record(entryValidity, "", start, err)
		return v, nil
	}

	out, err := s.filterGeneric(ctx, smiles)
	s.record(entryValidity, "", start, err)
	if err != nil {
		s.logger.WithContext(ctx).Warn("structure validation failed",
			logging.String(logging.FieldStructure, smiles), logging.Err(err))
		return nil, err
	}

	v.Valid = true
	v.ProcessedSMILES = out
	return v, nil
}

func (s *serviceImpl) Validate(ctx context.Context, smiles string, calc structure.Calculator) error {
	policy := calc.Policy()
	if !policy.SkipExclusions {
		if err := structure.CheckExclusions(smiles); err != nil {
			s.reject(ctx, err, calc.String(), smiles)
			return err
		}
	}
	if policy.SkipMassCheck {
		return nil
	}
	if err := s.checkMass(ctx, smiles); err != nil {
		if errors.IsRejection(err) {
			s.reject(ctx, err, calc.String(), smiles)
		}
		return err
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Stages
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) filterGeneric(ctx context.Context, smiles string) (string, error) {
	log := s.logger.WithContext(ctx)

	working, err := s.applyLast(ctx, smiles, genericActions)
	if err != nil {
		return "", err
	}
	log.Debug("explicit H removed and transformed",
		logging.String(logging.FieldStructure, working))

	if taut, ok := s.majorTautomer(ctx, working); ok {
		log.Debug("major tautomer found", logging.String(logging.FieldStructure, taut))
		working = taut
	}

	final, err := s.applyLast(ctx, working, neutralizeActions)
	if err != nil {
		return "", err
	}
	log.Debug("neutralized", logging.String(logging.FieldStructure, final))
	return final, nil
}

func (s *serviceImpl) filterForCalculator(ctx context.Context, smiles string, calc structure.Calculator) (string, error) {
	if err := s.Validate(ctx, smiles, calc); err != nil {
		return "", err
	}

	policy := calc.Policy()
	working := smiles

	if policy.ClearStereo {
		var err error
		if working, err = s.applyLast(ctx, working, clearStereoActions); err != nil {
			return "", err
		}
		if working, err = s.applyLast(ctx, working, untransformActions); err != nil {
			return "", err
		}
		s.logger.WithContext(ctx).Debug("stereo cleared and untransformed",
			logging.String(logging.FieldCalculator, calc.String()),
			logging.String(logging.FieldStructure, working))
	}

	if policy.RejectBrackets {
		if err := structure.CheckBrackets(working, calc); err != nil {
			s.reject(ctx, err, calc.String(), working)
			return "", err
		}
	}

	return working, nil
}

// applyLast applies actions in one request and keeps the terminal result.
func (s *serviceImpl) applyLast(ctx context.Context, smiles string, actions []structure.Action) (string, error) {
	res, err := s.standardizer.ApplyActions(ctx, smiles, actions)
	if err != nil {
		return "", serviceError(err, "standardizer action failed",
			"actions="+strings.Join(structure.ActionNames(actions), ","))
	}
	return res.Last()
}

// checkMass performs the single mass lookup of the mass gate.
func (s *serviceImpl) checkMass(ctx context.Context, smiles string) error {
	res, err := s.standardizer.GetMass(ctx, smiles)
	if err != nil {
		return serviceError(err, "mass lookup failed", "")
	}
	mass, err := res.Mass()
	if err != nil {
		return err
	}
	s.logger.WithContext(ctx).Debug("structure mass",
		logging.String(logging.FieldStructure, smiles), logging.Float64("mass", mass))
	return structure.CheckMass(mass)
}

// majorTautomer is the only soft-fail stage: any failure keeps the prior
// structure.
func (s *serviceImpl) majorTautomer(ctx context.Context, smiles string) (string, bool) {
	log := s.logger.WithContext(ctx)

	res, err := s.tautomers.ResolveMajorTautomer(ctx, smiles)
	if err != nil {
		s.metrics.TautomerFallbacksTotal.WithLabelValues("error").Inc()
		log.Warn("major tautomer lookup failed, keeping prior structure",
			logging.String(logging.FieldStructure, smiles), logging.Err(err))
		return "", false
	}
	taut, ok := res.Structure()
	if !ok {
		s.metrics.TautomerFallbacksTotal.WithLabelValues("missing_structure").Inc()
		log.Warn("major tautomer response has no structure, keeping prior structure",
			logging.String(logging.FieldStructure, smiles))
		return "", false
	}
	return taut, true
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) record(entry, calc string, start time.Time, err error) {
	outcome := prometheus.OutcomeSuccess
	switch {
	case err == nil:
	case errors.IsRejection(err):
		outcome = prometheus.OutcomeRejected
	default:
		outcome = prometheus.OutcomeError
	}
	prometheus.RecordFilter(s.metrics, entry, calc, outcome, time.Since(start))
}

func (s *serviceImpl) reject(ctx context.Context, err error, calc, smiles string) {
	reason := rejectionReason(err)
	prometheus.RecordRejection(s.metrics, reason, calc)
	s.logger.WithContext(ctx).Info("structure rejected",
		logging.String("reason", reason),
		logging.String(logging.FieldCalculator, calc),
		logging.String(logging.FieldStructure, smiles))
}

func rejectionReason(err error) string {
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidStructure:
		return "invalid_structure"
	case errors.ErrCodeTooLarge:
		return "too_large"
	case errors.ErrCodeUnsupportedStructure:
		return "unsupported_structure"
	default:
		return "other"
	}
}

// serviceError passes typed collaborator errors through unchanged and
// classifies untyped ones as ServiceUnavailable.
func serviceError(err error, message, detail string) error {
	if errors.GetCode(err) != errors.CodeUnknown {
		return err
	}
	ae := errors.Wrap(err, errors.ErrCodeStandardizerUnavailable, message)
	if detail != "" {
		return ae.WithDetail(detail)
	}
	return ae
}
