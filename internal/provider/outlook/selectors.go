package outlook

// Pages the scripts navigate to.
const (
	loginURL   = "https://login.live.com/login.srf"
	logoutURL  = "https://login.live.com/logout.srf"
	signupURL  = "https://signup.live.com/signup"
	mailURL    = "https://outlook.live.com/mail/0/"
	composeURL = "https://outlook.live.com/mail/0/deeplink/compose"
)

// Sign-in page.
const (
	selLoginEmail    = `input[name="loginfmt"]`
	selNext          = `#idSIButton9`
	selPassword      = `input[name="passwd"]`
	selUsernameError = `#usernameError`
	selPasswordError = `#passwordError`
	selStaySignedIn  = `#idBtn_Back`
)

// Sign-up page.
const (
	selNewAddress      = `#liveSwitch`
	selMemberName      = `#MemberName`
	selDomain          = `#LiveDomainBoxList`
	selSignupNext      = `#iSignupAction`
	selMemberNameError = `#MemberNameError`
	selNewPassword     = `#PasswordInput`
	selFirstName       = `#FirstName`
	selLastName        = `#LastName`
	selBirthMonth      = `#BirthMonth`
	selBirthDay        = `#BirthDay`
	selBirthYear       = `#BirthYear`
)

// Mailbox.
const (
	selMailbox     = `div[role="main"]`
	selSearch      = `#topSearchInput`
	selResults     = `div[role="listbox"]`
	selComposeBody = `div[aria-label="Message body"]`
	selSendButton  = `button[aria-label="Send"]`
	selSignedOut   = `body`
)

// extractMessagesJS lists the conversations shown in the results pane.
const extractMessagesJS = `(() => {
  const text = (root, sel) => {
    const n = root.querySelector(sel);
    return n ? n.textContent.trim() : "";
  };
  const attr = (root, sel, name) => {
    const n = root.querySelector(sel);
    return n ? (n.getAttribute(name) || "") : "";
  };
  return Array.from(document.querySelectorAll('div[role="listbox"] div[role="option"][data-convid]')).map(el => ({
    id: el.getAttribute("data-convid"),
    from: attr(el, "span[title*='@']", "title") || text(el, "span[title*='@']"),
    subject: text(el, "span[class*='subject'], span[id*='subject']"),
    preview: (el.querySelector("span[class*='preview'], div[class*='preview']") || {}).innerHTML || "",
    received: attr(el, "span[class*='date'][title], span[title][aria-hidden]", "title"),
    unread: /\bunread\b/i.test(el.getAttribute("aria-label") || "")
  }));
})()`
