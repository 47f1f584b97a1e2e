package testcase

// SetName returns an UpdateSetter that sets the test case's name.
func SetName(name string) UpdateSetter {
	return func(tc *TestCase) error {
		if name == "" {
			return ErrInvalidTestCaseName
		}
		tc.Name = name
		return nil
	}
}

// SetDescription returns an UpdateSetter that sets the test case's description.
func SetDescription(description string) UpdateSetter {
	return func(tc *TestCase) error {
		tc.Description = description
		return nil
	}
}

// SetSteps returns an UpdateSetter that sets the test case's BDD steps.
func SetSteps(steps Steps) UpdateSetter {
	return func(tc *TestCase) error {
		for _, step := range steps {
			if step.Text == "" {
				return ErrInvalidSteps
			}
		}
		tc.Steps = steps
		return nil
	}
}

// SetPrereqCaseID returns an UpdateSetter that sets the prerequisite case ID.
// An empty value clears the prerequisite.
func SetPrereqCaseID(caseID string) UpdateSetter {
	return func(tc *TestCase) error {
		if caseID != "" && !caseIDPattern.MatchString(caseID) {
			return ErrInvalidCaseID
		}
		tc.PrereqCaseID = caseID
		return nil
	}
}
