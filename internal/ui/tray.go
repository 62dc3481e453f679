package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

// trayIcon is a white disc with an "S" on blue.
var trayIcon = fyne.NewStaticResource("netmon.svg", []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="64" height="64" viewBox="0 0 64 64">
<rect width="64" height="64" fill="#1e88e5"/>
<circle cx="32" cy="32" r="20" fill="#ffffff"/>
<text x="32" y="41" font-family="sans-serif" font-size="24" font-weight="bold" text-anchor="middle" fill="#1e88e5">S</text>
</svg>`))

// setupTray installs the tray icon with open and exit entries. The icon
// stays for the whole life of the app. Returns false when the driver has
// no system tray.
func (a *App) setupTray() bool {
	desk, ok := a.fyne.(desktop.App)
	if !ok {
		a.logger.Warn("system tray not supported by this driver")
		return false
	}

	open := fyne.NewMenuItem("打开", a.Show)
	exit := fyne.NewMenuItem("退出", a.Quit)
	exit.IsQuit = true

	desk.SetSystemTrayMenu(fyne.NewMenu(AppName, open, exit))
	desk.SetSystemTrayIcon(trayIcon)
	a.window.SetIcon(trayIcon)
	return true
}
