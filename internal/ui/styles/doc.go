// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the sessionguard
monitor.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection. Every status color is paired with an ASCII indicator from
StatusIndicators so states never rely on color alone.

# Color Roles

  - Emerald - Active session, success
  - Amber - Session and inactivity warnings
  - Rose - Expired session, errors
  - Cyan - Information, key hints

# Theme

NewTheme detects the terminal color profile with termenv and builds the
header, panel and dialog styles:

	theme := styles.NewTheme()
	theme.SetSize(msg.Width, msg.Height)
	box := theme.DialogWarning.Render(content)
*/
package styles
