package i18n

import (
	"github.com/haidarlabs/qanuni-gateway/internal/language"
)

// Key names a logical message independent of locale.
type Key string

const (
	KeyGreeting Key = "greeting"
	KeyMenu     Key = "menu"
	KeyHelp     Key = "help"
	KeyAbout    Key = "about"

	KeyAnalysisUnavailable Key = "analysis.unavailable"
	KeyAnalysisFetchFailed Key = "analysis.fetch_failed"
	KeyAnalysisFailed      Key = "analysis.failed"

	KeyGenericError Key = "error.generic"

	KeyReportHeader         Key = "report.header"
	KeyRiskScoreLabel       Key = "report.risk_score"
	KeyFindingsLabel        Key = "report.findings"
	KeyRecommendationsLabel Key = "report.recommendations"

	KeyBandLow    Key = "band.low"
	KeyBandMedium Key = "band.medium"
	KeyBandHigh   Key = "band.high"

	// Outbound template bodies used by templated and bulk sends.
	KeyTemplateWelcome  Key = "template.welcome"
	KeyTemplateFollowup Key = "template.followup"
)

// catalog maps (key, locale) to a body string. English is mandatory for every
// key; the Arabic and Urdu columns may be absent, in which case Lookup falls
// back to English. A missing English entry is a programming error caught by
// the package tests.
var catalog = map[Key]map[language.Locale]string{
	KeyGreeting: {
		language.LocaleEnglish: "Welcome to the legal assistant! Send a photo or PDF of any document to have it analyzed, or type \"help\" to see what I can do.",
		language.LocaleArabic:  "مرحباً بك في المساعد القانوني! أرسل صورة أو ملف PDF لأي مستند لتحليله، أو اكتب \"مساعدة\" لعرض الأوامر.",
		language.LocaleUrdu:    "قانونی معاون میں خوش آمدید! کسی دستاویز کی تصویر یا PDF بھیجیں تاکہ ہم اس کا تجزیہ کریں، یا \"مدد\" لکھیں۔",
	},
	KeyMenu: {
		language.LocaleEnglish: "Here is what I can do:\n1. Send a document (photo or PDF) and I will analyze it\n2. Type \"help\" for guidance\n3. Type \"about\" to learn more about this service",
		language.LocaleArabic:  "إليك ما يمكنني فعله:\n1. أرسل مستنداً (صورة أو PDF) لتحليله\n2. اكتب \"مساعدة\" للإرشادات\n3. اكتب \"حول\" لمعرفة المزيد عن الخدمة",
		language.LocaleUrdu:    "میں یہ کر سکتا ہوں:\n1. دستاویز (تصویر یا PDF) بھیجیں، میں تجزیہ کروں گا\n2. رہنمائی کے لیے \"مدد\" لکھیں\n3. مزید جاننے کے لیے \"تعارف\" لکھیں",
	},
	KeyHelp: {
		language.LocaleEnglish: "Send a clear photo or a PDF of your document and I will analyze it and assess its risk. You can add a caption such as \"rental contract\" to improve the result.",
		language.LocaleArabic:  "أرسل صورة واضحة أو ملف PDF للمستند وسأقوم بتحليله وتقييم مخاطره. يمكنك إضافة وصف مثل \"عقد إيجار\" لتحسين النتيجة.",
		language.LocaleUrdu:    "دستاویز کی واضح تصویر یا PDF بھیجیں، میں تجزیہ کر کے خطرے کی درجہ بندی بتاؤں گا۔ بہتر نتیجے کے لیے \"کرائے کا معاہدہ\" جیسا کیپشن شامل کریں۔",
	},
	KeyAbout: {
		language.LocaleEnglish: "I am an automated legal assistant that analyzes documents and assesses risk. This service does not replace professional legal advice.",
		language.LocaleArabic:  "أنا مساعد قانوني آلي يحلل المستندات ويقيّم المخاطر. هذه الخدمة لا تغني عن الاستشارة القانونية المتخصصة.",
		language.LocaleUrdu:    "میں ایک خودکار قانونی معاون ہوں جو دستاویزات کا تجزیہ کرتا ہے۔ یہ سروس پیشہ ورانہ قانونی مشورے کا متبادل نہیں۔",
	},
	KeyAnalysisUnavailable: {
		language.LocaleEnglish: "Document analysis is currently unavailable. Please try again later.",
		language.LocaleArabic:  "خدمة تحليل المستندات غير متاحة حالياً. حاول مرة أخرى لاحقاً.",
		language.LocaleUrdu:    "دستاویز کے تجزیے کی سہولت فی الحال دستیاب نہیں۔ براہ کرم بعد میں کوشش کریں۔",
	},
	KeyAnalysisFetchFailed: {
		language.LocaleEnglish: "I couldn't retrieve your document. Please send it again.",
		language.LocaleArabic:  "تعذر استلام المستند. أعد إرساله من فضلك.",
		language.LocaleUrdu:    "دستاویز موصول نہیں ہو سکی۔ براہ کرم دوبارہ بھیجیں۔",
	},
	KeyAnalysisFailed: {
		language.LocaleEnglish: "The analysis failed. Please try again.",
		language.LocaleArabic:  "تعذر تحليل المستند. حاول مرة أخرى.",
		language.LocaleUrdu:    "دستاویز کا تجزیہ نہیں ہو سکا۔ دوبارہ کوشش کریں۔",
	},
	KeyGenericError: {
		language.LocaleEnglish: "Sorry, something went wrong. Please try again.",
		language.LocaleArabic:  "عذراً، حدث خطأ ما. حاول مرة أخرى.",
		language.LocaleUrdu:    "معذرت، کچھ غلط ہو گیا۔ دوبارہ کوشش کریں۔",
	},
	KeyReportHeader: {
		language.LocaleEnglish: "Document analysis result",
		language.LocaleArabic:  "نتيجة تحليل المستند",
		language.LocaleUrdu:    "دستاویز کے تجزیے کا نتیجہ",
	},
	KeyRiskScoreLabel: {
		language.LocaleEnglish: "Risk",
		language.LocaleArabic:  "درجة المخاطرة",
		language.LocaleUrdu:    "خطرے کی درجہ بندی",
	},
	KeyFindingsLabel: {
		language.LocaleEnglish: "Key findings",
		language.LocaleArabic:  "أبرز الملاحظات",
		language.LocaleUrdu:    "اہم نکات",
	},
	KeyRecommendationsLabel: {
		language.LocaleEnglish: "Recommendations",
		language.LocaleArabic:  "التوصيات",
		language.LocaleUrdu:    "سفارشات",
	},
	KeyBandLow: {
		language.LocaleEnglish: "LOW",
		language.LocaleArabic:  "منخفضة",
		language.LocaleUrdu:    "کم",
	},
	KeyBandMedium: {
		language.LocaleEnglish: "MEDIUM",
		language.LocaleArabic:  "متوسطة",
		language.LocaleUrdu:    "درمیانہ",
	},
	KeyBandHigh: {
		language.LocaleEnglish: "HIGH",
		language.LocaleArabic:  "مرتفعة",
		language.LocaleUrdu:    "زیادہ",
	},
	KeyTemplateWelcome: {
		language.LocaleEnglish: "Hello {{.Name}}, welcome to the legal assistant. Send any document as a photo or PDF and I will analyze it for you.",
		language.LocaleArabic:  "مرحباً {{.Name}}، أهلاً بك في المساعد القانوني. أرسل أي مستند كصورة أو PDF وسأقوم بتحليله لك.",
		language.LocaleUrdu:    "ہیلو {{.Name}}، قانونی معاون میں خوش آمدید۔ کوئی بھی دستاویز تصویر یا PDF کے طور پر بھیجیں۔",
	},
	KeyTemplateFollowup: {
		language.LocaleEnglish: "Hello {{.Name}}, do you have any other documents you would like me to review?",
		language.LocaleArabic:  "مرحباً {{.Name}}، هل لديك مستندات أخرى تود مراجعتها؟",
		language.LocaleUrdu:    "ہیلو {{.Name}}، کیا آپ کے پاس کوئی اور دستاویز ہے جس کا جائزہ لینا چاہیں؟",
	},
}

// Lookup returns the body for key in the requested locale, falling back to
// English when no translation exists. The second return reports whether the
// key itself is known.
func Lookup(key Key, loc language.Locale) (string, bool) {
	perLocale, ok := catalog[key]
	if !ok {
		return "", false
	}
	if body, ok := perLocale[loc.OrDefault()]; ok {
		return body, true
	}
	return perLocale[language.LocaleEnglish], true
}

// T is the convenience form of Lookup for keys known at compile time.
// Unknown keys render as the key name so a missed entry is visible in output
// rather than silently blank.
func T(key Key, loc language.Locale) string {
	body, ok := Lookup(key, loc)
	if !ok {
		return string(key)
	}
	return body
}
