package rules

// DefaultTables returns the compiled-in rule tables mirroring the
// clinical protocol the server ships with. A rules file configured at
// startup replaces them wholesale.
func DefaultTables() []*Table {
	return []*Table{
		defaultHematologicalTable(),
		defaultSystemicToxicityTable(),
		defaultTreatmentTable(),
	}
}

// defaultHematologicalTable is the 2:1 AND table combining hemoglobin
// and WBC levels into a hematological state.
func defaultHematologicalTable() *Table {
	fields := []string{FieldHemoglobinState, FieldWBCLevel}
	row := func(hemoglobin, wbc, output string) Row {
		return Row{
			Inputs: map[string]string{
				FieldHemoglobinState: hemoglobin,
				FieldWBCLevel:        wbc,
			},
			Output: output,
		}
	}

	return &Table{
		Name:   TableHematological,
		Fields: fields,
		Rows: []Row{
			row("Low", "Low-Low", "Pancytopenia"),
			row("Low", "Low", "Anemia"),
			row("Low", "Normal", "Anemia"),
			row("Low", "High", "Suspected Leukemia"),
			row("Normal", "Low-Low", "Leukopenia"),
			row("Normal", "Low", "Leukopenia"),
			row("Normal", "Normal", "Normal"),
			row("Normal", "High", "Leukemoid Reaction"),
			row("High", "Normal", "Polyhemia"),
			row("High", "High", "Suspected Polycytemia Vera"),
		},
	}
}

// defaultSystemicToxicityTable is the 4:1 lookup grading systemic
// toxicity from fever, chills, skin look and allergic state.
func defaultSystemicToxicityTable() *Table {
	fields := []string{FieldFeverLevel, FieldChills, FieldSkinLook, FieldAllergicState}
	row := func(fever, chills, skin, allergic, grade string) Row {
		return Row{
			Inputs: map[string]string{
				FieldFeverLevel:    fever,
				FieldChills:        chills,
				FieldSkinLook:      skin,
				FieldAllergicState: allergic,
			},
			Output: grade,
		}
	}

	return &Table{
		Name:   TableSystemicToxicity,
		Fields: fields,
		Rows: []Row{
			row("Normal-Elevated", "None", "Erythema", "Edema", "GRADE I"),
			row("High", "None", "Erythema", "Edema", "GRADE II"),
			row("High", "Shaking", "Vesiculation", "Bronchospasm", "GRADE II"),
			row("Very High", "Shaking", "Desquamation", "Bronchospasm", "GRADE III"),
			row("Very High", "Rigor", "Desquamation", "Sever-Bronchospasm", "GRADE III"),
			row("Very High", "Rigor", "Exfoliation", "Anaphylactic-Shock", "GRADE IV"),
		},
	}
}

// defaultTreatmentTable is the 4:1 lookup producing treatment
// recommendations from gender, raw hemoglobin state and the two
// derived analysis outputs.
func defaultTreatmentTable() *Table {
	fields := []string{FieldGender, FieldHemoglobinState, FieldHematologicalState, FieldSystemicToxicityGrade}
	row := func(gender, hemoglobin, hematological, grade, treatment string) Row {
		return Row{
			Inputs: map[string]string{
				FieldGender:                gender,
				FieldHemoglobinState:       hemoglobin,
				FieldHematologicalState:    hematological,
				FieldSystemicToxicityGrade: grade,
			},
			Output: treatment,
		}
	}

	return &Table{
		Name:   TableTreatment,
		Fields: fields,
		Rows: []Row{
			row("Male", "Low", "Pancytopenia", "GRADE I",
				"Measure BP once a week"),
			row("Male", "Low", "Anemia", "GRADE II",
				"Measure BP every 3 days; Give aspirin 5g twice a week"),
			row("Male", "Normal", "Suspected Leukemia", "GRADE III",
				"Measure BP every day; Give aspirin 15g every day; Diet consultation"),
			row("Male", "Normal", "Leukemoid Reaction", "GRADE IV",
				"Measure BP twice a day; Give aspirin 15g every day; Exercise consultation; Diet consultation"),
			row("Female", "Low", "Pancytopenia", "GRADE I",
				"Measure BP every 3 days"),
			row("Female", "Low", "Anemia", "GRADE II",
				"Give aspirin 10g twice a week; Diet consultation"),
			row("Female", "Normal", "Suspected Leukemia", "GRADE III",
				"Give magnesium 10g once a day; Diet consultation"),
			row("Female", "Normal", "Leukemoid Reaction", "GRADE IV",
				"Give magnesium 10g twice a day; Exercise consultation; Diet consultation"),
		},
	}
}
