package bot

// Reply keyboard labels. They double as command labels in the registry.
const (
	labelBook      = "📝 Make an appointment"
	labelMine      = "📅 My appointments"
	labelExercises = "🎯 My exercises"
	labelTasks     = "✅ My tasks"
	labelInfo      = "ℹ️ Information"
	labelContact   = "💬 Contact specialist"
	labelFAQ       = "❓ FAQ"
	labelPanel     = "⚙️ Admin panel"
)

const (
	textWelcome = "Hello! I am the assistant of the speech therapy center.\nHow can I help you?"

	textHelp = "Available commands:\n" +
		"/start - main menu\n" +
		"/help - this message\n" +
		"/tasks - your tasks and timers\n" +
		"/newtask - create a task\n" +
		"/cancel - stop the current dialogue"

	textAdminHelp = "\n\nAdmin commands:\n" +
		"/panel - admin panel\n" +
		"/pending - access requests\n" +
		"/allowed - users with access\n" +
		"/grant &lt;id|@handle&gt; - give access\n" +
		"/revoke &lt;id&gt; - take access away\n" +
		"/approve_all, /deny_all - decide every request\n" +
		"/schedule - working hours\n" +
		"/assign &lt;id&gt; &lt;name&gt; | &lt;description&gt; - assign a task"

	textInfo = "🏥 <b>About our center</b>\n\n" +
		"• Qualified specialists\n" +
		"• Modern methods\n" +
		"• Individual approach"

	textFAQ = "<b>Frequently asked questions</b>\n\n" +
		"1. From what age can a child see a speech therapist?\n" +
		"2. How long does a session last?\n" +
		"3. How often should we practise?\n" +
		"4. What should we bring to the first visit?"

	textContact     = "Messaging the specialist from the bot is not available yet. Please call the center."
	textBookStub    = "Online booking is not available yet. Please call the center to make an appointment."
	textMineStub    = "Your appointments will be shown here soon."
	textUnknown     = "Sorry, I do not understand that.\nUse the menu buttons or /help."
	textUnknownFile = "I cannot process files here."
	textRateLimited = "Too many messages, please slow down."
	textAdminOnly   = "This command is for administrators."
	textFailed      = "Something went wrong, please try again later."
	textCancelled   = "Cancelled."
	textNothingToDo = "Nothing to cancel."
	textExpired     = "This button has expired."

	textSubscribe = "❗️ To open the exercises:\n\n" +
		"1. Subscribe to our channel\n" +
		"2. Press «Check subscription»"
	textRequestAccess = "❗️ The exercises need an administrator's approval.\n\n" +
		"Press the button below to send a request."
	textSubscribed    = "✅ Subscription confirmed!\n\n" + textRequestAccess
	textPending       = "⏳ Your access request is under review.\nPlease wait for the administrator's decision."
	textNotSubscribed = "❌ You are not subscribed to the channel yet."
	textRequestSent   = "✅ Request sent! Please wait for the administrator's decision."
	textRequestExists = "⏳ Your request is already under review."
	textHasAccess     = "You already have access."

	textGranted = "✅ Access granted! Open «" + labelExercises + "» to start."
	textDenied  = "❌ Your access request was declined."
	textRevoked = "Your access to the exercises has been revoked."

	textCategories = "<b>🎯 Exercise videos</b>\n\n<i>Choose a category:</i>\n\n" +
		"• Each category has hand-picked videos\n" +
		"• Practise regularly\n" +
		"• Watch your technique"
	textNoVideos = "No videos found right now. Please try again later."

	textTaskName        = "Send the task name (up to 100 characters)."
	textTaskDescription = "Send a description, or «-» to leave it empty."
	textNoTasks         = "You have no tasks yet. Send /newtask to create one."
	textTimerStarted    = "⏱ Timer started"

	textPanel       = "🔧 Admin panel"
	textSchedule    = "📅 Schedule management"
	textPickDate    = "📅 Choose a date to publish working hours:"
	textPickTimes   = "Tap the hours to toggle them, then confirm."
	textNoTimes     = "Select at least one time."
	textNoSlots     = "📅 No upcoming slots."
	textPlaceholder = "This section is under development."
)
