package teacher

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/thusykanna/school-management-system-v1/core"
)

var (
	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to your username, name or email"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(teacherStructValidation, NewTeacher{})
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}

// teacherStructValidation rejects passwords too close to the other signup attributes.
func teacherStructValidation(sl validator.StructLevel) {
	nt, ok := sl.Current().Interface().(NewTeacher)
	if !ok || nt.Password == "" {
		return
	}
	if passwordTooSimilar(nt.Password, nt.Username, nt.Name, nt.Email) {
		sl.ReportError(nt.Password, "password", "Password", pwdAttrSimTag, "")
	}
}

func passwordTooSimilar(pwd string, attrs ...string) bool {
	lpwd := strings.ToLower(pwd)
	for _, attr := range attrs {
		if attr == "" {
			continue
		}
		ratio := difflib.NewMatcher(strings.Split(lpwd, ""), strings.Split(strings.ToLower(attr), "")).QuickRatio()
		if ratio >= pwdMaxSim {
			return true
		}
	}
	return false
}
