package fixtures

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"sync"
)

// PortalServer serves an HTML gateway page laid out like the campus portal,
// for tests that drive a real browser.
type PortalServer struct {
	*httptest.Server

	mu       sync.Mutex
	loggedIn bool
	message  string
	account  string
	password string
	operator string
}

// NewPortalServer starts a portal that accepts the given credentials.
func NewPortalServer(account, password string) *PortalServer {
	s := &PortalServer{account: account, password: password}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/logout", s.handleLogout)
	s.Server = httptest.NewServer(mux)
	return s
}

// LoggedIn reports whether a login was accepted.
func (s *PortalServer) LoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loggedIn
}

// Operator returns the operator submitted with the last login.
func (s *PortalServer) Operator() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.operator
}

// Logout drops the session.
func (s *PortalServer) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loggedIn = false
}

var portalPage = template.Must(template.New("portal").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Portal</title></head>
<body>
<div id="edit_body">
{{if .LoggedIn}}
  <div><div><form><div>您已经成功登录。</div></form></div></div>
{{else}}
  <div>校园网认证</div>
  <div>
    <div></div><div></div><div></div><div></div><div></div><div></div>
    <div></div><div></div><div></div><div></div><div></div>
    <div>
      <select name="operator">
        <option value="campus">校园网</option>
        <option value="telecom">中国电信</option>
        <option value="mobile">中国移动</option>
        <option value="unicom">中国联通</option>
      </select>
      <form method="post" action="/login">
        <input type="hidden" name="v" value="1">
        <input type="submit" value="登录">
        <input type="text" name="username">
        <input type="password" name="password">
        <input type="hidden" name="operator" id="op">
      </form>
    </div>
  </div>
{{end}}
</div>
{{if .Message}}<div id="message">{{.Message}}</div>{{end}}
<script>
  const sel = document.querySelector("select[name=operator]");
  const form = document.querySelector("form");
  if (sel && form) {
    form.addEventListener("submit", () => { document.getElementById("op").value = sel.options[sel.selectedIndex].text; });
  }
</script>
</body></html>`))

func (s *PortalServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	data := struct {
		LoggedIn bool
		Message  string
	}{s.loggedIn, s.message}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_ = portalPage.Execute(w, data)
}

func (s *PortalServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	if r.PostForm.Get("username") == s.account && r.PostForm.Get("password") == s.password {
		s.loggedIn = true
		s.message = ""
		s.operator = r.PostForm.Get("operator")
	} else {
		s.message = MsgBadCredentials
	}
	s.mu.Unlock()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *PortalServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Logout()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
