package classify

// Commonly used GA4 field names, checked in order (dimensions first) when
// suggesting a correction. The list is static and will drift from the API's
// real catalog over time.

var Dimensions = []string{
	"achievementId", "adFormat", "adSourceName", "adUnitName", "appVersion",
	"audienceName", "brandingInterest", "browser", "campaignId", "campaignName",
	"city", "cityId", "contentGroup", "contentType", "country", "countryId",
	"date", "dateHour", "dateHourMinute", "day", "dayOfWeek", "deviceCategory",
	"deviceModel", "eventName", "fileExtension", "fileName", "firstSessionDate",
	"fullPageUrl", "groupId", "hostName", "hour", "isConversionEvent",
	"itemBrand", "itemCategory", "itemId", "itemName", "landingPage",
	"language", "linkClasses", "linkDomain", "linkId", "linkText", "linkUrl",
	"medium", "minute", "month", "newVsReturning", "operatingSystem",
	"operatingSystemVersion", "orderCoupon", "outbound", "pagePath",
	"pagePathPlusQueryString", "pageReferrer", "pageTitle", "platform",
	"region", "screenResolution", "searchTerm", "sessionCampaignId",
	"sessionCampaignName", "sessionDefaultChannelGroup", "sessionGoogleAdsAdGroupName",
	"sessionGoogleAdsAdNetworkType", "sessionGoogleAdsCampaignName",
	"sessionGoogleAdsKeyword", "sessionGoogleAdsQuery",
	"sessionMedium", "sessionSource", "sessionSourceMedium", "sessionSourcePlatform",
	"source", "sourceMedium", "sourcePlatform", "streamId", "streamName",
	"unifiedScreenName", "userAgeBracket", "userGender", "week", "year",
}

var Metrics = []string{
	"active1DayUsers", "active28DayUsers", "active7DayUsers", "activeUsers",
	"addToCarts", "advertiserAdClicks", "advertiserAdCost",
	"advertiserAdCostPerConversion", "advertiserAdImpressions",
	"averagePurchaseRevenue", "averageRevenuePerUser",
	"averageSessionDuration", "bounceRate", "cartToViewRate", "checkouts",
	"conversions", "crashAffectedUsers", "crashFreeUsersRate",
	"dauPerMau", "dauPerWau", "ecommercePurchases", "engagedSessions",
	"engagementRate", "eventCount", "eventCountPerUser", "eventValue",
	"eventsPerSession", "firstTimePurchasers", "grossPurchaseRevenue",
	"itemListClickThroughRate", "itemListClicks", "itemListViews",
	"itemPromotionClickThroughRate", "itemRevenue", "itemViews",
	"newUsers", "organicGoogleSearchClicks", "organicGoogleSearchImpressions",
	"promotionClicks", "promotionViews", "purchaseRevenue", "purchaseToViewRate",
	"purchaserRate", "returnOnAdSpend", "screenPageViews", "screenPageViewsPerSession",
	"scrolledUsers", "sessionConversionRate", "sessions",
	"sessionsPerUser", "totalAdRevenue", "totalPurchasers", "totalRevenue",
	"totalUsers", "transactions", "transactionsPerPurchaser",
	"userConversionRate", "userEngagementDuration", "wauPerMau",
}
