package receipt

// Branding and fixed copy printed on every receipt.
const (
	CompanyName    = "HOUSIKA PROPERTIES"
	CompanyContact = "Email: support@housika.co.ke | Phone: +254 745 108 505"
	SecurityNotice = "IMPORTANT: Do not pay until you have entered and verified the property."
	DocumentTitle  = "BOOKING RECEIPT"
	FooterLine     = "Thank you for using Housika Properties"
	QRCaption      = "Scan to verify booking"
	QRHeading      = "Housika Booking Receipt"
	TermsHeading   = "Terms & Conditions:"
)

// Document properties written into the PDF info dictionary.
const (
	MetaTitle    = "Housika Booking Receipt"
	MetaAuthor   = "Housika Properties"
	MetaSubject  = "Property Booking Confirmation"
	MetaProducer = "Housika PDF Generator"
	MetaCreator  = "Housika PDF Generator"
	MetaLanguage = "en-US"
)

// MetaKeywords are the keywords attached to every receipt.
var MetaKeywords = []string{"housika", "booking", "receipt", "property"}

// Terms are the numbered terms and conditions lines.
var Terms = []string{
	"1. This receipt serves as proof of booking only",
	"2. Payment does not guarantee property condition",
	"3. All disputes must be reported within 24 hours",
	"4. Housika is not liable for tenant-landlord disputes",
}
