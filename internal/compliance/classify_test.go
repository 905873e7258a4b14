package compliance

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

func boolPtr(v bool) *bool { return &v }

type ClassifierSuite struct {
	suite.Suite
	classifier *Classifier
}

func TestClassifierSuite(t *testing.T) {
	suite.Run(t, new(ClassifierSuite))
}

func (s *ClassifierSuite) SetupTest() {
	s.classifier = NewClassifier(nil)
}

func (s *ClassifierSuite) TestClassify() {
	s.Run("pending registration is provisionally compliant", func() {
		rec := Record{
			RegistrationStatus: TriState{ProvisionalOnly: boolPtr(true)},
			RealtimeChecks:     RealtimeChecks{EverObservedOnNetwork: true},
		}
		cls := s.classifier.Classify(rec)
		s.Equal(StatusProvisionallyCompliant, cls.Status)
		s.True(cls.Active)
		s.Equal("Provisionally Compliant (Active)", cls.Label())
	})

	s.Run("registered device is compliant", func() {
		rec := Record{
			RealtimeChecks: RealtimeChecks{InRegistrationList: true},
		}
		cls := s.classifier.Classify(rec)
		s.Equal(StatusCompliant, cls.Status)
		s.False(cls.Active)
		s.Equal("Compliant (Inactive)", cls.Label())
	})

	s.Run("provisional stolen report blocks even a registered-looking device", func() {
		rec := Record{
			StolenStatus: TriState{ProvisionalOnly: boolPtr(true)},
			BlockDate:    "2026-01-15",
		}
		cls := s.classifier.Classify(rec)
		s.Equal(StatusProvisionallyNonCompliant, cls.Status)
		s.Equal([]string{"reported stolen, pending"}, cls.Reasons)
		s.Equal("2026-01-15", cls.BlockDate)
	})

	s.Run("confirmed stolen report is non compliant", func() {
		rec := Record{
			StolenStatus: TriState{ProvisionalOnly: boolPtr(false)},
			BlockDate:    "2026-01-15",
		}
		cls := s.classifier.Classify(rec)
		s.Equal(StatusNonCompliant, cls.Status)
		s.Equal([]string{"reported stolen"}, cls.Reasons)
	})

	s.Run("clean device is compliant by exclusion", func() {
		cls := s.classifier.Classify(Record{})
		s.Equal(StatusCompliant, cls.Status)
		s.False(cls.Active)
	})

	s.Run("blocking conditions map to configured reasons", func() {
		rec := Record{
			RealtimeChecks: RealtimeChecks{GSMANotFound: true},
			ClassificationState: ClassificationState{
				BlockingConditions: []Condition{
					{Name: "gsma_not_found", Met: true},
					{Name: "local_stolen", Met: false},
				},
			},
		}
		cls := s.classifier.Classify(rec)
		s.Equal(StatusNonCompliant, cls.Status)
		s.Equal([]string{"device model not found in GSMA database"}, cls.Reasons)
	})

	s.Run("invalid imei gets its own reason", func() {
		rec := Record{
			RealtimeChecks: RealtimeChecks{InvalidIMEI: true},
		}
		cls := s.classifier.Classify(rec)
		s.Equal(StatusNonCompliant, cls.Status)
		s.Contains(cls.Reasons, "invalid IMEI")
	})

	s.Run("unmapped conditions fall back to the generic reason", func() {
		rec := Record{
			RealtimeChecks: RealtimeChecks{EverObservedOnNetwork: true},
		}
		cls := s.classifier.Classify(rec)
		s.Equal(StatusNonCompliant, cls.Status)
		s.Equal([]string{reasonGeneric}, cls.Reasons)
	})

	s.Run("classification is pure", func() {
		rec := Record{
			StolenStatus: TriState{ProvisionalOnly: boolPtr(true)},
		}
		first := s.classifier.Classify(rec)
		second := s.classifier.Classify(rec)
		s.Equal(first, second)
	})

	s.Run("provisional stolen never classifies compliant", func() {
		// Exhaust the other fields; rule ordering must keep stolen ahead
		// of the clean-device rule.
		for _, checks := range []RealtimeChecks{
			{},
			{InRegistrationList: false, EverObservedOnNetwork: false},
			{GSMANotFound: true},
			{InvalidIMEI: true},
		} {
			rec := Record{
				StolenStatus:   TriState{ProvisionalOnly: boolPtr(true)},
				RealtimeChecks: checks,
			}
			cls := s.classifier.Classify(rec)
			s.NotEqual(StatusCompliant, cls.Status)
			s.NotEqual(StatusProvisionallyCompliant, cls.Status)
		}
	})
}
