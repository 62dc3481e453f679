package policy

// SudaPolicy implements PortalPolicy for the Soochow University gateway (10.9.1.3).
type SudaPolicy struct{}

// NewSudaPolicy creates the built-in campus gateway policy.
func NewSudaPolicy() *SudaPolicy {
	return &SudaPolicy{}
}

func (p *SudaPolicy) ID() string {
	return "suda"
}

func (p *SudaPolicy) Name() string {
	return "苏州大学校园网"
}

func (p *SudaPolicy) SuccessLocator() string {
	return `//*[@id="edit_body"]/div/div[1]/form/div[1]`
}

func (p *SudaPolicy) SuccessPhrase() string {
	return "您已经成功登录。"
}

func (p *SudaPolicy) MessageLocator() string {
	return `//*[@id="message"]`
}

// OperatorLocators returns the dropdown locators, most specific first.
func (p *SudaPolicy) OperatorLocators() []string {
	return []string{
		`//*[@id="edit_body"]/div[2]/div[12]/select`,
		`//*[@id="edit_body"]//select`,
		`//select`,
	}
}

func (p *SudaPolicy) AccountLocators() []string {
	return []string{
		`//*[@id="edit_body"]/div[2]/div[12]/form/input[3]`,
		`//*[@id="edit_body"]//input[@type="text" or @name="username" or @id="username"]`,
		`//input[@type="text" or @name="username" or @id="username"]`,
	}
}

func (p *SudaPolicy) PasswordLocators() []string {
	return []string{
		`//*[@id="edit_body"]/div[2]/div[12]/form/input[4]`,
		`//*[@id="edit_body"]//input[@type="password" or @name="password" or @id="password"]`,
		`//input[@type="password" or @name="password" or @id="password"]`,
	}
}

// SubmitLocators ends with a <button> match for layouts without an input[type=submit].
func (p *SudaPolicy) SubmitLocators() []string {
	return []string{
		`//*[@id="edit_body"]/div[2]/div[12]/form/input[2]`,
		`//*[@id="edit_body"]//input[@type="submit" or @value="登录" or @value="Login"]`,
		`//input[@type="submit" or @value="登录" or @value="Login"]`,
		`//button[contains(.,"登录") or contains(.,"Login")]`,
	}
}

// Ensure SudaPolicy implements PortalPolicy.
var _ PortalPolicy = (*SudaPolicy)(nil)
